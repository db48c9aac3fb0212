package solana

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeReader реализует BalanceReader поверх таблицы ответов.
type fakeReader struct {
	mu          sync.Mutex
	balances    map[string]BalanceResult
	failWith    map[string]error
	calls       int
	inFlight    int
	maxInFlight int
	callDelay   time.Duration
}

func (f *fakeReader) GetTokenBalance(ctx context.Context, wallet string) (BalanceResult, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	if f.callDelay > 0 {
		time.Sleep(f.callDelay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if err, ok := f.failWith[wallet]; ok {
		return BalanceResult{}, err
	}
	if b, ok := f.balances[wallet]; ok {
		return b, nil
	}
	return BalanceResult{Found: false}, nil
}

func wallets(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("wallet-%02d", i)
	}
	return out
}

func TestFetchBalances_AllWalletsCovered(t *testing.T) {
	reader := &fakeReader{
		balances: map[string]BalanceResult{
			"wallet-00": {Found: true, Amount: 500},
			"wallet-03": {Found: true, Amount: 1200},
		},
	}
	fetcher := NewBatchFetcher(reader, BatchFetcherConfig{BatchSize: 10, BatchDelay: time.Millisecond})

	results, err := fetcher.FetchBalances(context.Background(), wallets(5))
	assert.NoError(t, err)
	assert.Len(t, results, 5)
	assert.Equal(t, uint64(500), results["wallet-00"].Amount)
	assert.Equal(t, uint64(1200), results["wallet-03"].Amount)
	assert.False(t, results["wallet-01"].Found)
}

func TestFetchBalances_FailedReadYieldsNilEntryOnly(t *testing.T) {
	reader := &fakeReader{
		balances: map[string]BalanceResult{},
		failWith: map[string]error{"wallet-07": errors.New("rpc unreachable")},
	}
	for _, w := range wallets(12) {
		reader.balances[w] = BalanceResult{Found: true, Amount: 100}
	}
	fetcher := NewBatchFetcher(reader, BatchFetcherConfig{BatchSize: 5, BatchDelay: time.Millisecond})

	results, err := fetcher.FetchBalances(context.Background(), wallets(12))
	assert.NoError(t, err)
	assert.Len(t, results, 12)

	entry, ok := results["wallet-07"]
	assert.True(t, ok, "failed wallet must still have a map entry")
	assert.Nil(t, entry)

	for _, w := range wallets(12) {
		if w == "wallet-07" {
			continue
		}
		assert.NotNil(t, results[w], "wallet %s must not be poisoned by the failure", w)
	}
}

func TestFetchBalances_ConcurrencyBoundedByBatchSize(t *testing.T) {
	reader := &fakeReader{callDelay: 20 * time.Millisecond}
	fetcher := NewBatchFetcher(reader, BatchFetcherConfig{BatchSize: 10, BatchDelay: time.Millisecond})

	results, err := fetcher.FetchBalances(context.Background(), wallets(25))
	assert.NoError(t, err)
	assert.Len(t, results, 25)
	assert.Equal(t, 25, reader.calls)
	assert.LessOrEqual(t, reader.maxInFlight, 10, "no more than one batch may be in flight")
}

func TestFetchBalances_EmptyInput(t *testing.T) {
	fetcher := NewBatchFetcher(&fakeReader{}, DefaultBatchFetcherConfig())

	results, err := fetcher.FetchBalances(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestFetchBalances_CancellationReturnsPartialResults(t *testing.T) {
	reader := &fakeReader{}
	fetcher := NewBatchFetcher(reader, BatchFetcherConfig{BatchSize: 5, BatchDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var results map[string]*BalanceResult
	var err error
	go func() {
		results, err = fetcher.FetchBalances(ctx, wallets(10))
		close(done)
	}()

	// Первый батч проходит сразу, отмена срабатывает на паузе перед вторым.
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, results, 5)
}

func TestPartition(t *testing.T) {
	batches := partition(wallets(25), 10)
	assert.Len(t, batches, 3)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 10)
	assert.Len(t, batches[2], 5)

	assert.Empty(t, partition(nil, 10))

	batches = partition(wallets(3), 10)
	assert.Len(t, batches, 1)
	assert.Len(t, batches[0], 3)
}
