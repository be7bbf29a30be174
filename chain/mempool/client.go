// Package mempool talks to a mempool.space-compatible block explorer REST
// API. It is the Bitcoin observer's (C4) only way of learning about the
// chain: funding transactions, confirmations, and the spends that reveal
// a preimage.
package mempool

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"
	"golang.org/x/time/rate"
)

// Config holds configuration for the block-explorer client.
type Config struct {
	// BaseURL is the base URL for the REST API. Default:
	// https://mempool.space/api
	BaseURL string

	// RateLimit is the number of requests per second allowed.
	// Default: 10
	RateLimit int

	// Timeout is the HTTP request timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// RetryAttempts is the number of retry attempts for failed requests.
	// Default: 3
	RetryAttempts int

	// RetryDelay is the delay between retry attempts.
	// Default: 1 second
	RetryDelay time.Duration
}

// DefaultConfig returns a default configuration pointed at the public
// mempool.space instance.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://mempool.space/api",
		RateLimit:     10,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Client is a rate-limited HTTP client for the block-explorer REST API.
type Client struct {
	cfg *Config

	httpClient  *http.Client
	rateLimiter *rate.Limiter

	mu sync.RWMutex
}

// NewClient creates a new block-explorer API client.
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: limiter,
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := c.cfg.BaseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			if attempt < c.cfg.RetryAttempts {
				time.Sleep(c.cfg.RetryDelay * time.Duration(attempt+1))
				continue
			}
			return nil, lastErr
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited by server (429)")
			if attempt < c.cfg.RetryAttempts {
				time.Sleep(c.cfg.RetryDelay * time.Duration(attempt+1) * 2)
				continue
			}
		case http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, string(respBody))
		case 500, 502, 503, 504:
			lastErr = fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
			if attempt < c.cfg.RetryAttempts {
				time.Sleep(c.cfg.RetryDelay * time.Duration(attempt+1))
				continue
			}
		default:
			return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRequestFailed, c.cfg.RetryAttempts+1, lastErr)
}

// GetCurrentHeight retrieves the current blockchain height.
func (c *Client) GetCurrentHeight(ctx context.Context) (uint32, error) {
	respBody, err := c.doRequest(ctx, "GET", "/blocks/tip/height", nil)
	if err != nil {
		return 0, err
	}

	var height uint32
	if err := json.Unmarshal(respBody, &height); err != nil {
		return 0, fmt.Errorf("failed to parse height: %w", err)
	}
	return height, nil
}

// GetAddressTxs retrieves the transactions touching a Bitcoin address,
// newest first, used to detect the HTLC funding transaction.
func (c *Client) GetAddressTxs(ctx context.Context, address string) ([]TransactionResponse, error) {
	path := fmt.Sprintf("/address/%s/txs", address)
	respBody, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var txs []TransactionResponse
	if err := json.Unmarshal(respBody, &txs); err != nil {
		return nil, fmt.Errorf("failed to parse address txs: %w", err)
	}
	return txs, nil
}

// GetTransaction retrieves a transaction by its ID.
func (c *Client) GetTransaction(ctx context.Context, txid string) (*TransactionResponse, error) {
	path := fmt.Sprintf("/tx/%s", txid)
	respBody, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var tx TransactionResponse
	if err := json.Unmarshal(respBody, &tx); err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %w", err)
	}
	return &tx, nil
}

// GetOutspend returns the spending status of a single output, used to
// find the transaction that reveals the HTLC preimage.
func (c *Client) GetOutspend(ctx context.Context, txid string, vout uint32) (*OutspendResponse, error) {
	path := fmt.Sprintf("/tx/%s/outspend/%d", txid, vout)
	respBody, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var out OutspendResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to parse outspend: %w", err)
	}
	return &out, nil
}

// BroadcastTransaction broadcasts a raw transaction to the network.
func (c *Client) BroadcastTransaction(ctx context.Context, tx *wire.MsgTx) error {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return fmt.Errorf("failed to serialize transaction: %w", err)
	}
	txHex := hex.EncodeToString(buf.Bytes())

	if _, err := c.doRequest(ctx, "POST", "/tx", []byte(txHex)); err != nil {
		return fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return nil
}

// GetFeeEstimates retrieves fee estimates for different confirmation
// targets.
func (c *Client) GetFeeEstimates(ctx context.Context) (*FeeEstimates, error) {
	respBody, err := c.doRequest(ctx, "GET", "/v1/fees/recommended", nil)
	if err != nil {
		return nil, err
	}

	var fees FeeEstimates
	if err := json.Unmarshal(respBody, &fees); err != nil {
		return nil, fmt.Errorf("failed to parse fee estimates: %w", err)
	}
	return &fees, nil
}
