// Package solana implements the XP ledger client for the Solana JSON-RPC API.
// XP is mirrored on-chain as a non-transferable SPL token; the balance of the
// XP mint in a learner's wallet is the on-chain side of reconciliation.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Solana RPC client.
type ClientConfig struct {
	// RPCURL is the JSON-RPC endpoint URL
	RPCURL string

	// XPMint is the mint address of the XP token
	XPMint string

	// Commitment is the commitment level for reads
	Commitment string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// RateLimiterConfig for RPC rate limiting
	RateLimiterConfig RateLimiterConfig

	// CircuitBreakerConfig for fault tolerance
	CircuitBreakerConfig CircuitBreakerConfig

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging of each RPC call
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(rpcURL, xpMint string) ClientConfig {
	return ClientConfig{
		RPCURL:               rpcURL,
		XPMint:               xpMint,
		Commitment:           "confirmed",
		Timeout:              15 * time.Second,
		RateLimiterConfig:    DefaultRateLimiterConfig(),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// BALANCE RESULT
// ══════════════════════════════════════════════════════════════════════════════

// BalanceResult is the typed outcome of a ledger read. A wallet that holds no
// XP token account is a normal outcome (Found=false, nil error), not an error:
// callers must never infer "account not found" from error text.
type BalanceResult struct {
	// Found is false when the wallet has no token account for the XP mint.
	Found bool

	// Amount is the raw token amount (integer units of the mint).
	Amount uint64

	// Decimals is the mint's decimal precision.
	Decimals int
}

// XPValue converts the raw amount to whole XP units.
func (b BalanceResult) XPValue() int64 {
	if !b.Found {
		return 0
	}
	v := b.Amount
	for i := 0; i < b.Decimals; i++ {
		v /= 10
	}
	return int64(v)
}

// BalanceReader is the ledger-read operation consumed by the batch fetcher
// and the reconciler.
type BalanceReader interface {
	GetTokenBalance(ctx context.Context, wallet string) (BalanceResult, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Solana JSON-RPC client for XP ledger reads.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	rateLimiter    *RateLimiter
	circuitBreaker *CircuitBreaker
}

// NewClient creates a new Solana RPC client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Commitment == "" {
		config.Commitment = "confirmed"
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:         config.Logger,
		rateLimiter:    NewRateLimiter(config.RateLimiterConfig),
		circuitBreaker: NewCircuitBreaker(config.CircuitBreakerConfig),
	}
}

// GetTokenBalance reads the XP token balance for the given wallet.
// When the wallet holds several token accounts for the XP mint, the amounts
// are summed. A wallet without any XP token account returns Found=false.
func (c *Client) GetTokenBalance(ctx context.Context, wallet string) (BalanceResult, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getTokenAccountsByOwner",
		Params: []any{
			wallet,
			map[string]string{"mint": c.config.XPMint},
			map[string]string{
				"encoding":   "jsonParsed",
				"commitment": c.config.Commitment,
			},
		},
	}

	var response rpcTokenAccountsResponse
	if err := c.doRequest(ctx, payload, &response); err != nil {
		return BalanceResult{}, fmt.Errorf("get token balance for %s: %w", wallet, err)
	}

	if response.Error != nil {
		return BalanceResult{}, shared.WrapError("ledger", "GetTokenBalance",
			shared.ErrInvalidFormat,
			fmt.Sprintf("rpc error %d", response.Error.Code),
			errors.New(response.Error.Message))
	}
	if response.Result == nil {
		return BalanceResult{}, shared.ErrLedgerBadResponse
	}

	if len(response.Result.Value) == 0 {
		return BalanceResult{Found: false}, nil
	}

	var total uint64
	decimals := 0
	for _, acct := range response.Result.Value {
		if acct.Account.Data.Parsed == nil {
			continue
		}
		amount := acct.Account.Data.Parsed.Info.TokenAmount
		raw, err := strconv.ParseUint(amount.Amount.String(), 10, 64)
		if err != nil {
			return BalanceResult{}, shared.WrapError("ledger", "GetTokenBalance",
				shared.ErrInvalidFormat, "unparseable token amount", err)
		}
		total += raw
		decimals = amount.Decimals
	}

	return BalanceResult{Found: true, Amount: total, Decimals: decimals}, nil
}

// IsHealthy checks if the RPC endpoint is reachable and reports healthy.
func (c *Client) IsHealthy(ctx context.Context) bool {
	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getHealth",
		Params:  []any{},
	}

	var response rpcHealthResponse
	if err := c.doSingleRequest(ctx, payload, &response); err != nil {
		return false
	}
	return response.Error == nil && response.Result == "ok"
}

// CircuitState returns the current circuit breaker state for monitoring.
func (c *Client) CircuitState() CircuitState {
	return c.circuitBreaker.State()
}

// Reset resets the rate limiter and circuit breaker.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	c.circuitBreaker.Reset()
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs an RPC call guarded by the rate limiter and circuit breaker.
func (c *Client) doRequest(ctx context.Context, payload rpcRequest, result any) error {
	if err := c.circuitBreaker.Allow(); err != nil {
		return shared.WrapError("ledger", payload.Method,
			shared.ErrServiceUnavailable, "circuit breaker open", err)
	}

	if err := c.rateLimiter.Allow(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return shared.WrapError("ledger", payload.Method,
			shared.ErrRateLimited, "local rate limit", err)
	}

	err := c.doSingleRequest(ctx, payload, result)
	if err == nil {
		c.circuitBreaker.RecordSuccess()
		return nil
	}

	var rlErr *remoteRateLimitError
	if errors.As(err, &rlErr) {
		c.rateLimiter.RecordRateLimitHit(rlErr.retryAfter)
	}
	c.circuitBreaker.RecordFailure()
	return err
}

// doSingleRequest performs a single HTTP POST to the RPC endpoint.
func (c *Client) doSingleRequest(ctx context.Context, payload rpcRequest, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.RPCURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.config.Debug {
		c.logger.Debug("solana rpc request", "method", payload.Method)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(payload.Method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return shared.WrapError("ledger", payload.Method,
			shared.ErrServiceUnavailable, "read response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 10 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &remoteRateLimitError{retryAfter: retryAfter}
	}

	if resp.StatusCode >= 400 {
		return shared.WrapError("ledger", payload.Method,
			shared.ErrServiceUnavailable,
			fmt.Sprintf("rpc status %d", resp.StatusCode),
			errors.New(string(respBody[:min(len(respBody), 256)])))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return shared.WrapError("ledger", payload.Method,
				shared.ErrInvalidFormat, "unmarshal response", err)
		}
	}

	return nil
}

// classifyTransportError maps transport-level failures to typed ledger errors.
func classifyTransportError(method string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return shared.WrapError("ledger", method, shared.ErrTimeout, "rpc timeout", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.WrapError("ledger", method, shared.ErrTimeout, "rpc timeout", err)
	}

	return shared.WrapError("ledger", method, shared.ErrServiceUnavailable, "rpc unreachable", err)
}

// remoteRateLimitError marks an HTTP 429 from the endpoint.
type remoteRateLimitError struct {
	retryAfter time.Duration
}

func (e *remoteRateLimitError) Error() string {
	return "rpc rate limit exceeded, retry after " + e.retryAfter.String()
}

// Is matches the shared rate-limit sentinel.
func (e *remoteRateLimitError) Is(target error) bool {
	return target == shared.ErrRateLimited
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
