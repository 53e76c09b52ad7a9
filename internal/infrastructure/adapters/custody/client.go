package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRetries = 3
)

// Config represents custody API client configuration
type Config struct {
	BaseURL     string
	APIKey      string
	Environment string // "sandbox" or "mainnet"
	Timeout     time.Duration
	MaxRetries  int
	RatePerSec  float64
	RateBurst   int
}

// Client talks to the custody provider that escrows, mints and burns
// bridged assets on our behalf.
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	logger         *zap.Logger
}

// NewClient creates a new custody API client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = defaultRetries
	}
	if config.BaseURL == "" {
		if config.Environment == "mainnet" {
			config.BaseURL = MainnetURL
		} else {
			config.BaseURL = SandboxURL
		}
	}
	if config.RatePerSec == 0 {
		config.RatePerSec = MaxRequestsPerSecond
	}
	if config.RateBurst == 0 {
		config.RateBurst = 1
	}

	cbSettings := gobreaker.Settings{
		Name:        "CustodyAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("custody circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Client{
		config:         config,
		httpClient:     &http.Client{Timeout: config.Timeout},
		circuitBreaker: gobreaker.NewCircuitBreaker(cbSettings),
		rateLimiter:    rate.NewLimiter(rate.Limit(config.RatePerSec), config.RateBurst),
		logger:         logger,
	}
}

// Escrow locks the sender's funds on the source chain until execution
func (c *Client) Escrow(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	var resp TransferResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/escrow", req, &resp); err != nil {
		return nil, fmt.Errorf("escrow failed: %w", err)
	}
	return &resp, nil
}

// ReleaseEscrow pays out previously escrowed funds to the recipient on
// the destination chain.
func (c *Client) ReleaseEscrow(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	var resp TransferResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/escrow/release", req, &resp); err != nil {
		return nil, fmt.Errorf("release escrow failed: %w", err)
	}
	return &resp, nil
}

// RefundEscrow returns escrowed funds to the original sender
func (c *Client) RefundEscrow(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	var resp TransferResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/escrow/refund", req, &resp); err != nil {
		return nil, fmt.Errorf("refund escrow failed: %w", err)
	}
	return &resp, nil
}

// Burn destroys wrapped tokens on the source chain
func (c *Client) Burn(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	var resp TransferResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/wrapped/burn", req, &resp); err != nil {
		return nil, fmt.Errorf("burn failed: %w", err)
	}
	return &resp, nil
}

// Mint issues wrapped tokens to the recipient on the destination chain
func (c *Client) Mint(ctx context.Context, req *TransferRequest) (*TransferResponse, error) {
	var resp TransferResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/wrapped/mint", req, &resp); err != nil {
		return nil, fmt.Errorf("mint failed: %w", err)
	}
	return &resp, nil
}

// Health checks custody API availability
func (c *Client) Health(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/v1/health", nil, nil)
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload, response interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, c.doRequestInternal(ctx, method, endpoint, payload, response)
	})
	return err
}

func (c *Client) doRequestInternal(ctx context.Context, method, endpoint string, payload, response interface{}) error {
	fullURL := c.config.BaseURL + endpoint

	var bodyBytes []byte
	if payload != nil {
		var err error
		bodyBytes, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		var body io.Reader
		if bodyBytes != nil {
			body = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read body: %w", err)
			continue
		}

		// Retry on 5xx
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode >= 400 {
			var errResp ErrorResponse
			if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
				errResp.StatusCode = resp.StatusCode
				return &errResp
			}
			return fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(respBody))
		}

		if response != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, response); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}
