// Package config binds the coordinator service's environment/flag
// surface (§6.5), adapted from the teacher's flat server.Config struct
// but expressed as a go-flags struct so it can be populated from both
// the environment and CLI flags the way the rest of the lnd/tapd
// ecosystem configures its daemons.
package config

import (
	"fmt"
	"time"
)

// Config is swapd's full runtime configuration (§6.5).
type Config struct {
	BTCAPIURL             string `long:"btc-api-url" env:"BTC_API_URL" description:"Base URL of the mempool.space-shaped REST API"`
	BTCWSURL              string `long:"btc-ws-url" env:"BTC_WS_URL" description:"WebSocket URL for the push-channel block/mempool feed"`
	AssetRPCURL           string `long:"asset-rpc-url" env:"ASSET_RPC_URL" description:"RPC endpoint of the asset ledger"`
	AssetContractAddress  string `long:"asset-contract-address" env:"ASSET_CONTRACT_ADDRESS" description:"Address/identifier of the asset HTLC module"`
	CoordinatorPrivateKey string `long:"coordinator-private-key" env:"COORDINATOR_PRIVATE_KEY" description:"Hex-encoded signing key authorizing openEscrow/claim/refund submissions"`

	MinConfirmations     uint32 `long:"min-confirmations" env:"MIN_CONFIRMATIONS" description:"BTC confirmations required before btc_confirmed fires"`
	TimeoutBufferHours   uint32 `long:"htlc-timeout-buffer-hours" env:"HTLC_TIMEOUT_BUFFER_HOURS" default:"2" description:"Delta hours between T_asset and T_btc"`
	PollIntervalMS       uint32 `long:"poll-interval-ms" env:"POLL_INTERVAL_MS" default:"30000" description:"Bitcoin observer poll interval in milliseconds"`
	MaxRetries           uint32 `long:"max-retries" env:"MAX_RETRIES" default:"5" description:"N_retry, the ExternalFailure retry budget"`
	AutoClaim            bool   `long:"auto-claim" env:"AUTO_CLAIM" description:"Automatically claim on secret_observed rather than waiting for forceClaim"`

	Network string `long:"network" default:"mainnet" description:"Bitcoin network: mainnet, testnet, or regtest"`

	DBPath         string `long:"db-path" description:"sqlite database file path"`
	AdminRPCListen string `long:"admin-rpc-listen" description:"Listen address for the admin API surface"`
}

// Default returns a Config with AUTO_CLAIM's true default applied -
// go-flags' `default` struct tag can't express `true` cleanly for a
// bool without also making "false" unsettable, so it's applied here
// instead, mirroring how the teacher's CLI commands set defaults that
// don't fit cleanly in struct tags.
func Default() *Config {
	return &Config{
		Network:            "mainnet",
		TimeoutBufferHours: 2,
		PollIntervalMS:     30000,
		MaxRetries:         5,
		AutoClaim:          true,
	}
}

// Validate checks that the required fields needed to actually start
// the service are present.
func (c *Config) Validate() error {
	if c.BTCAPIURL == "" {
		return fmt.Errorf("config: BTC_API_URL is required")
	}
	if c.AssetRPCURL == "" {
		return fmt.Errorf("config: ASSET_RPC_URL is required")
	}
	if c.CoordinatorPrivateKey == "" {
		return fmt.Errorf("config: COORDINATOR_PRIVATE_KEY is required")
	}
	if c.TimeoutBufferHours < 1 || c.TimeoutBufferHours > 24 {
		return fmt.Errorf("config: HTLC_TIMEOUT_BUFFER_HOURS must be in [1, 24], got %d", c.TimeoutBufferHours)
	}
	if c.MinConfirmations == 0 {
		return fmt.Errorf("config: MIN_CONFIRMATIONS must be > 0")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db-path is required")
	}
	return nil
}

// PollInterval returns PollIntervalMS as a time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// TimeoutBuffer returns TimeoutBufferHours as a time.Duration.
func (c *Config) TimeoutBuffer() time.Duration {
	return time.Duration(c.TimeoutBufferHours) * time.Hour
}
