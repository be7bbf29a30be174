// swapd is the coordinator daemon's entrypoint: parse configuration,
// stand up logging, build and run the service, and expose the admin
// API surface (§6.4) over a small JSON/HTTP interface in the style the
// teacher's daemons front their gRPC services with - here trimmed
// to net/http since the admin surface is six unary operations, not a
// streaming proto service.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/btcsuite/btclog"
	flags "github.com/jessevdk/go-flags"
	"github.com/jrick/logrotate/rotator"

	"github.com/tapswap/htlcswap/chain/mempool"
	"github.com/tapswap/htlcswap/config"
	"github.com/tapswap/htlcswap/coordinator"
	"github.com/tapswap/htlcswap/escrow"
	"github.com/tapswap/htlcswap/events"
	"github.com/tapswap/htlcswap/secret"
	"github.com/tapswap/htlcswap/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Default()
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := setupLogger()
	mempool.UseLogger(logger)

	svc, err := service.New(cfg)
	if err != nil {
		logger.Errorf("failed to build service: %v", err)
		return 1
	}

	if err := svc.Start(); err != nil {
		logger.Errorf("failed to start service: %v", err)
		return 1
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	registerAdminHandlers(mux, svc.Coordinator())
	registerEventHandlers(mux, svc.Normalizer())

	listen := cfg.AdminRPCListen
	if listen == "" {
		listen = "127.0.0.1:8421"
	}
	logger.Infof("admin API listening on %s", listen)

	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Errorf("admin API exited: %v", err)
		return 1
	}
	return 0
}

// setupLogger wires a rotating file logger the way the lnd/btcd daemons
// in this ecosystem do: btclog.Logger backed by a jrick/logrotate
// rotator, falling back to stdout-only if the rotating log file can't
// be opened.
func setupLogger() btclog.Logger {
	backend := btclog.NewBackend(os.Stdout)
	logger := backend.Logger("SWAPD")
	logger.SetLevel(btclog.LevelInfo)

	r, err := rotator.New("swapd.log", 10*1024, false, 3)
	if err != nil {
		logger.Warnf("log rotation disabled: %v", err)
		return logger
	}
	backend = btclog.NewBackend(io.MultiWriter(os.Stdout, r))
	logger = backend.Logger("SWAPD")
	logger.SetLevel(btclog.LevelInfo)
	return logger
}

func registerAdminHandlers(mux *http.ServeMux, c *coordinator.Coordinator) {
	mux.HandleFunc("/v1/registerSwap", jsonHandler(func(r *http.Request) (interface{}, error) {
		var req coordinator.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, err
		}
		return nil, c.RegisterSwap(req)
	}))

	mux.HandleFunc("/v1/getSwap", jsonHandler(func(r *http.Request) (interface{}, error) {
		var q struct{ HashH string }
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			return nil, err
		}
		hashH, err := secret.ParseCommitment(q.HashH)
		if err != nil {
			return nil, err
		}
		swap, ok := c.GetSwap(hashH)
		if !ok {
			return nil, fmt.Errorf("swap %s not found", q.HashH)
		}
		return swap, nil
	}))

	mux.HandleFunc("/v1/listSwaps", jsonHandler(func(r *http.Request) (interface{}, error) {
		return c.ListSwaps(), nil
	}))

	mux.HandleFunc("/v1/forceClaim", jsonHandler(func(r *http.Request) (interface{}, error) {
		var q struct {
			HashH  string
			Secret string
		}
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			return nil, err
		}
		hashH, err := secret.ParseCommitment(q.HashH)
		if err != nil {
			return nil, err
		}
		s, err := secret.ParseSecret(q.Secret)
		if err != nil {
			return nil, err
		}
		return nil, c.ForceClaim(hashH, s)
	}))

	mux.HandleFunc("/v1/forceRefund", jsonHandler(func(r *http.Request) (interface{}, error) {
		var q struct{ HashH string }
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			return nil, err
		}
		hashH, err := secret.ParseCommitment(q.HashH)
		if err != nil {
			return nil, err
		}
		return nil, c.ForceRefund(hashH)
	}))

	mux.HandleFunc("/v1/stats", jsonHandler(func(r *http.Request) (interface{}, error) {
		return c.Stats(), nil
	}))
}

// registerEventHandlers exposes the canonical event log (C7) for
// operator inspection: the raw record stream and per-token
// owner/escrow projections.
func registerEventHandlers(mux *http.ServeMux, n *events.Normalizer) {
	mux.HandleFunc("/v1/events", jsonHandler(func(r *http.Request) (interface{}, error) {
		return n.Records(), nil
	}))

	mux.HandleFunc("/v1/projection", jsonHandler(func(r *http.Request) (interface{}, error) {
		var q struct{ TokenID uint64 }
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			return nil, err
		}
		proj, ok := n.Projection(escrow.TokenID(q.TokenID))
		if !ok {
			return nil, fmt.Errorf("no projection for token %d", q.TokenID)
		}
		return proj, nil
	}))
}

func jsonHandler(fn func(r *http.Request) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
