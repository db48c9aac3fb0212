// Package solana implements the XP ledger client for the Solana JSON-RPC API.
package solana

import (
	"context"
	"errors"

	"github.com/superteam-academy/xp-engine/internal/application/command"
	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
	"github.com/superteam-academy/xp-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER GATEWAY
// Adapts the RPC client and batch fetcher to the reconciler's ledger port,
// converting raw token amounts to whole XP units.
// ══════════════════════════════════════════════════════════════════════════════

// Gateway implements command.LedgerGateway over the RPC client.
type Gateway struct {
	client  *Client
	fetcher *BatchFetcher
	retrier *retry.Retrier
}

// NewGateway creates a Gateway. The batch fetcher wraps the same client,
// so both paths share one rate limiter and circuit breaker.
func NewGateway(client *Client, fetcherConfig BatchFetcherConfig) *Gateway {
	return &Gateway{
		client:  client,
		fetcher: NewBatchFetcher(client, fetcherConfig),
		retrier: retry.SolanaRPCRetrier(),
	}
}

// ReadBalance performs a single synchronous ledger read.
// Transient RPC failures are retried with backoff; rate-limit errors are not,
// the client's own limiter already paces the next call.
func (g *Gateway) ReadBalance(ctx context.Context, wallet xp.WalletAddress) (command.BalanceReading, error) {
	var balance BalanceResult
	err := g.retrier.Do(ctx, func(ctx context.Context) error {
		b, err := g.client.GetTokenBalance(ctx, wallet.String())
		if err != nil {
			if shared.IsTransient(err) && !errors.Is(err, shared.ErrRateLimited) {
				return retry.Retryable(err)
			}
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		return command.BalanceReading{}, err
	}
	return toReading(balance), nil
}

// ReadBalances reads many wallets in rate-limited batches.
func (g *Gateway) ReadBalances(ctx context.Context, wallets []xp.WalletAddress) (map[xp.WalletAddress]*command.BalanceReading, error) {
	raw := make([]string, len(wallets))
	for i, w := range wallets {
		raw[i] = w.String()
	}

	results, err := g.fetcher.FetchBalances(ctx, raw)

	readings := make(map[xp.WalletAddress]*command.BalanceReading, len(results))
	for wallet, balance := range results {
		if balance == nil {
			readings[xp.WalletAddress(wallet)] = nil
			continue
		}
		r := toReading(*balance)
		readings[xp.WalletAddress(wallet)] = &r
	}
	return readings, err
}

func toReading(b BalanceResult) command.BalanceReading {
	return command.BalanceReading{
		Found: b.Found,
		XP:    xp.XP(b.XPValue()),
	}
}
