// Package solana implements the XP ledger client for the Solana JSON-RPC API.
package solana

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// BATCH FETCHER
// ══════════════════════════════════════════════════════════════════════════════

// BatchFetcherConfig contains configuration for batched ledger reads.
type BatchFetcherConfig struct {
	// BatchSize is the number of wallets read concurrently per batch
	BatchSize int

	// BatchDelay is the pause between consecutive batches
	BatchDelay time.Duration

	// ReadTimeout bounds each individual ledger read, so one stalled
	// request cannot stall the whole batch
	ReadTimeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultBatchFetcherConfig returns sensible defaults.
func DefaultBatchFetcherConfig() BatchFetcherConfig {
	return BatchFetcherConfig{
		BatchSize:   10,
		BatchDelay:  100 * time.Millisecond,
		ReadTimeout: 10 * time.Second,
	}
}

// BatchFetcher reads ledger balances for many wallets while respecting the
// endpoint's rate limits: reads within one batch run concurrently, batches
// run sequentially with an enforced delay in between.
type BatchFetcher struct {
	reader BalanceReader
	config BatchFetcherConfig
	logger *slog.Logger
}

// NewBatchFetcher creates a BatchFetcher over the given reader.
func NewBatchFetcher(reader BalanceReader, config BatchFetcherConfig) *BatchFetcher {
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &BatchFetcher{
		reader: reader,
		config: config,
		logger: config.Logger,
	}
}

// FetchBalances reads balances for all wallets and returns a map covering
// every input wallet exactly once. A failed read yields a nil entry for that
// wallet only; it never aborts the batch or any subsequent batch.
//
// Context cancellation is honored between batches: the partial map collected
// so far is returned together with the context error.
func (f *BatchFetcher) FetchBalances(ctx context.Context, wallets []string) (map[string]*BalanceResult, error) {
	results := make(map[string]*BalanceResult, len(wallets))
	if len(wallets) == 0 {
		return results, nil
	}

	batches := partition(wallets, f.config.BatchSize)

	for i, batch := range batches {
		if i > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(f.config.BatchDelay):
			}
		}

		f.fetchBatch(ctx, batch, results)

		f.logger.Debug("ledger batch complete",
			"batch", i+1,
			"batches", len(batches),
			"size", len(batch))
	}

	return results, nil
}

// fetchBatch reads one batch of wallets concurrently. Each read gets its own
// timeout; failures are logged and recorded as nil.
func (f *BatchFetcher) fetchBatch(ctx context.Context, batch []string, results map[string]*BalanceResult) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, wallet := range batch {
		wg.Add(1)
		go func(wallet string) {
			defer wg.Done()

			readCtx := ctx
			if f.config.ReadTimeout > 0 {
				var cancel context.CancelFunc
				readCtx, cancel = context.WithTimeout(ctx, f.config.ReadTimeout)
				defer cancel()
			}

			balance, err := f.reader.GetTokenBalance(readCtx, wallet)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				f.logger.Warn("ledger read failed",
					"wallet", wallet,
					"error", err)
				results[wallet] = nil
				return
			}
			results[wallet] = &balance
		}(wallet)
	}

	wg.Wait()
}

// partition splits wallets into consecutive batches of at most size elements.
func partition(wallets []string, size int) [][]string {
	batches := make([][]string, 0, (len(wallets)+size-1)/size)
	for start := 0; start < len(wallets); start += size {
		end := start + size
		if end > len(wallets) {
			end = len(wallets)
		}
		batches = append(batches, wallets[start:end])
	}
	return batches
}
