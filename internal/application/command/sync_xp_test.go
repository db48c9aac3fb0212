package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ──────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ──────────────────────────────────────────────────────────────────────────────

// memRecords - in-memory реализация xp.Repository для тестов хендлеров.
type memRecords struct {
	mu      sync.Mutex
	byUser  map[xp.UserID]*xp.Record
	saveErr map[xp.UserID]error
	saves   int
}

func newMemRecords(records ...*xp.Record) *memRecords {
	m := &memRecords{
		byUser:  make(map[xp.UserID]*xp.Record),
		saveErr: make(map[xp.UserID]error),
	}
	for _, rec := range records {
		m.byUser[rec.UserID] = rec
	}
	return m
}

func (m *memRecords) GetByUserID(_ context.Context, userID xp.UserID) (*xp.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byUser[userID]
	if !ok {
		return nil, shared.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memRecords) GetByWallet(_ context.Context, wallet xp.WalletAddress) (*xp.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.byUser {
		if rec.WalletAddress == wallet {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, shared.ErrRecordNotFound
}

func (m *memRecords) Save(_ context.Context, record *xp.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.saveErr[record.UserID]; ok {
		return err
	}
	cp := *record
	m.byUser[record.UserID] = &cp
	m.saves++
	return nil
}

func (m *memRecords) ListWithWallet(_ context.Context) ([]*xp.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*xp.Record, 0, len(m.byUser))
	for _, rec := range m.byUser {
		if rec.HasWallet() {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRecords) ListEligible(_ context.Context, since time.Time) ([]*xp.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*xp.Record, 0, len(m.byUser))
	for _, rec := range m.byUser {
		if !rec.LeaderboardEligible {
			continue
		}
		if !since.IsZero() && rec.LastActivityAt.Before(since) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRecords) CountStrictlyAbove(_ context.Context, field xp.SortField, value int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, rec := range m.byUser {
		if rec.LeaderboardEligible && rec.MetricFor(field) > value {
			count++
		}
	}
	return count, nil
}

func (m *memRecords) Stats(_ context.Context) (*xp.AggregateStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &xp.AggregateStats{TotalUsers: len(m.byUser)}
	for _, rec := range m.byUser {
		stats.TotalXP += int64(rec.TotalXP)
		if rec.HasWallet() {
			stats.UsersWithWallet++
		}
		if lvl := rec.Level(); lvl > stats.TopLevel {
			stats.TopLevel = lvl
		}
	}
	if stats.TotalUsers > 0 {
		stats.AverageXP = stats.TotalXP / int64(stats.TotalUsers)
	}
	return stats, nil
}

// fakeLedger - LedgerGateway поверх таблицы балансов.
type fakeLedger struct {
	readings    map[xp.WalletAddress]*BalanceReading
	readErr     error
	batchErr    error
	singleCalls int
	batchCalls  int
	started     chan struct{}
	release     chan struct{}
}

func (f *fakeLedger) ReadBalance(_ context.Context, wallet xp.WalletAddress) (BalanceReading, error) {
	f.singleCalls++
	if f.readErr != nil {
		return BalanceReading{}, f.readErr
	}
	if r, ok := f.readings[wallet]; ok && r != nil {
		return *r, nil
	}
	return BalanceReading{Found: false}, nil
}

func (f *fakeLedger) ReadBalances(_ context.Context, wallets []xp.WalletAddress) (map[xp.WalletAddress]*BalanceReading, error) {
	f.batchCalls++
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.batchErr != nil && f.readings == nil {
		return nil, f.batchErr
	}
	out := make(map[xp.WalletAddress]*BalanceReading, len(wallets))
	for _, w := range wallets {
		out[w] = f.readings[w]
	}
	return out, f.batchErr
}

// memRunStore - in-memory SyncRunStore.
type memRunStore struct {
	mu      sync.Mutex
	runs    []*SyncRun
	saveErr error
}

func (m *memRunStore) SaveRun(_ context.Context, run *SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRunStore) LastRun(_ context.Context) (*SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		return nil, shared.ErrNotFound
	}
	return m.runs[len(m.runs)-1], nil
}

// fakeInvalidator считает вызовы инвалидации.
type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeInvalidator) InvalidateLeaderboard(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeInvalidator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

const (
	walletA xp.WalletAddress = "4Nd1mYvLhyuqzv4HCGnXDsMWV8UqYpAiGCs4k2FSQqk4"
	walletB xp.WalletAddress = "7aqZyWkePNsYbuGEdWpQPyjQxVynUrWVKgY1hQEP2Me3"
	walletC xp.WalletAddress = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
)

func recordWithWallet(userID string, wallet xp.WalletAddress, offChain xp.XP) *xp.Record {
	rec, _ := xp.NewRecord(xp.UserID(userID), time.Now().UTC())
	_ = rec.BindWallet(wallet)
	_ = rec.ApplyActivity(offChain, time.Now().UTC())
	return rec
}

// ──────────────────────────────────────────────────────────────────────────────
// RunSync
// ──────────────────────────────────────────────────────────────────────────────

func TestRunSync_MergesBalancesMonotonically(t *testing.T) {
	records := newMemRecords(
		recordWithWallet("user-a", walletA, 200), // он-чейн обгонит
		recordWithWallet("user-b", walletB, 900), // офф-чейн впереди
	)
	ledger := &fakeLedger{readings: map[xp.WalletAddress]*BalanceReading{
		walletA: {Found: true, XP: 1000},
		walletB: {Found: true, XP: 300},
	}}
	runs := &memRunStore{}
	inv := &fakeInvalidator{}
	handler := NewReconcileHandler(records, ledger, runs, inv, nil)

	stats, err := handler.RunSync(context.Background(), "manual")
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Errors)

	recA, _ := records.GetByUserID(context.Background(), "user-a")
	assert.Equal(t, xp.XP(1000), recA.TotalXP)
	assert.False(t, recA.LastSyncedAt.IsZero())

	// user-b: баланс леджера ниже офф-чейн счётчика, запись не тронута.
	recB, _ := records.GetByUserID(context.Background(), "user-b")
	assert.Equal(t, xp.XP(900), recB.TotalXP)
	assert.True(t, recB.LastSyncedAt.IsZero())

	assert.Equal(t, 1, inv.count())
	assert.Equal(t, RunStateCompleted, handler.State())
}

func TestRunSync_MissingBalanceIsSkipped(t *testing.T) {
	records := newMemRecords(recordWithWallet("user-a", walletA, 500))
	// Чтение кошелька провалилось: батч-фетчер кладёт nil.
	ledger := &fakeLedger{readings: map[xp.WalletAddress]*BalanceReading{walletA: nil}}
	handler := NewReconcileHandler(records, ledger, nil, nil, nil)

	stats, err := handler.RunSync(context.Background(), "scheduled")
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.Synced)
	assert.Equal(t, 1, stats.Skipped)

	rec, _ := records.GetByUserID(context.Background(), "user-a")
	assert.Equal(t, xp.XP(500), rec.TotalXP)
}

func TestRunSync_WalletWithoutTokenAccountReadsAsZero(t *testing.T) {
	records := newMemRecords(recordWithWallet("user-a", walletA, 500))
	ledger := &fakeLedger{readings: map[xp.WalletAddress]*BalanceReading{
		walletA: {Found: false},
	}}
	handler := NewReconcileHandler(records, ledger, nil, nil, nil)

	stats, err := handler.RunSync(context.Background(), "scheduled")
	assert.NoError(t, err)
	// Нулевой баланс ниже текущего TotalXP: значение не меняется.
	assert.Equal(t, 0, stats.Synced)
	assert.Equal(t, 1, stats.Skipped)
}

func TestRunSync_PersistenceFailureIsolatedPerRecord(t *testing.T) {
	recA := recordWithWallet("user-a", walletA, 100)
	recB := recordWithWallet("user-b", walletB, 100)
	records := newMemRecords(recA, recB)
	records.saveErr["user-a"] = errors.New("connection reset")

	ledger := &fakeLedger{readings: map[xp.WalletAddress]*BalanceReading{
		walletA: {Found: true, XP: 2000},
		walletB: {Found: true, XP: 2000},
	}}
	runs := &memRunStore{}
	handler := NewReconcileHandler(records, ledger, runs, nil, nil)

	stats, err := handler.RunSync(context.Background(), "manual")
	assert.NoError(t, err, "a per-record write failure must not abort the run")
	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 1, stats.Errors)

	run, err := runs.LastRun(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "manual", run.Trigger)
	assert.Equal(t, 1, run.Synced)
	assert.Equal(t, 1, run.Errors)
	assert.NotEmpty(t, run.ID)
}

func TestRunSync_BatchReadHardFailure(t *testing.T) {
	records := newMemRecords(recordWithWallet("user-a", walletA, 100))
	ledger := &fakeLedger{batchErr: errors.New("rpc unreachable")}
	handler := NewReconcileHandler(records, ledger, nil, nil, nil)

	_, err := handler.RunSync(context.Background(), "manual")
	assert.Error(t, err)
	// Провалившийся прогон не блокирует следующий.
	assert.Equal(t, RunStateCompleted, handler.State())
}

func TestRunSync_PartialBatchReadStillReconciles(t *testing.T) {
	records := newMemRecords(recordWithWallet("user-a", walletA, 100))
	ledger := &fakeLedger{
		batchErr: context.Canceled,
		readings: map[xp.WalletAddress]*BalanceReading{walletA: {Found: true, XP: 5000}},
	}
	handler := NewReconcileHandler(records, ledger, nil, nil, nil)

	// Частичная карта балансов реконсилируется несмотря на ошибку контекста.
	stats, err := handler.RunSync(context.Background(), "manual")
	assert.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
}

func TestRunSync_NoChangesSkipsInvalidation(t *testing.T) {
	records := newMemRecords(recordWithWallet("user-a", walletA, 900))
	ledger := &fakeLedger{readings: map[xp.WalletAddress]*BalanceReading{
		walletA: {Found: true, XP: 100},
	}}
	inv := &fakeInvalidator{}
	handler := NewReconcileHandler(records, ledger, nil, inv, nil)

	stats, err := handler.RunSync(context.Background(), "manual")
	assert.NoError(t, err)
	assert.Equal(t, 0, stats.Synced)
	assert.Equal(t, 0, inv.count())
}

func TestRunSync_OverlapGuard(t *testing.T) {
	records := newMemRecords(recordWithWallet("user-a", walletA, 100))
	ledger := &fakeLedger{
		readings: map[xp.WalletAddress]*BalanceReading{walletA: {Found: true, XP: 500}},
		started:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	handler := NewReconcileHandler(records, ledger, nil, nil, nil)

	done := make(chan struct{})
	go func() {
		_, _ = handler.RunSync(context.Background(), "scheduled")
		close(done)
	}()

	<-ledger.started
	assert.Equal(t, RunStateRunning, handler.State())

	_, err := handler.RunSync(context.Background(), "manual")
	assert.ErrorIs(t, err, ErrSyncAlreadyRunning)

	close(ledger.release)
	<-done
	assert.Equal(t, RunStateCompleted, handler.State())
}

// ──────────────────────────────────────────────────────────────────────────────
// FetchUserData
// ──────────────────────────────────────────────────────────────────────────────

func TestFetchUserData_ReconcilesOnRead(t *testing.T) {
	records := newMemRecords(recordWithWallet("user-a", walletA, 200))
	ledger := &fakeLedger{readings: map[xp.WalletAddress]*BalanceReading{
		walletA: {Found: true, XP: 1500},
	}}
	inv := &fakeInvalidator{}
	handler := NewReconcileHandler(records, ledger, nil, inv, nil)

	rec, err := handler.FetchUserData(context.Background(), walletA)
	assert.NoError(t, err)
	assert.Equal(t, xp.XP(1500), rec.TotalXP)
	assert.False(t, rec.LastSyncedAt.IsZero())
	assert.Equal(t, 1, inv.count())

	// Запись сохранена, а не только возвращена.
	stored, _ := records.GetByUserID(context.Background(), "user-a")
	assert.Equal(t, xp.XP(1500), stored.TotalXP)
}

func TestFetchUserData_InvalidWalletFormat(t *testing.T) {
	handler := NewReconcileHandler(newMemRecords(), &fakeLedger{}, nil, nil, nil)

	_, err := handler.FetchUserData(context.Background(), "bogus")
	assert.ErrorIs(t, err, shared.ErrInvalidWalletFmt)
}

func TestFetchUserData_UnknownWallet(t *testing.T) {
	handler := NewReconcileHandler(newMemRecords(), &fakeLedger{}, nil, nil, nil)

	_, err := handler.FetchUserData(context.Background(), walletC)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFetchUserData_LedgerFailureAssumesZero(t *testing.T) {
	records := newMemRecords(recordWithWallet("user-a", walletA, 700))
	ledger := &fakeLedger{readErr: errors.New("rpc timeout")}
	handler := NewReconcileHandler(records, ledger, nil, nil, nil)

	rec, err := handler.FetchUserData(context.Background(), walletA)
	assert.NoError(t, err, "ledger failure on the on-demand path is never surfaced")
	assert.Equal(t, xp.XP(700), rec.TotalXP)
	assert.True(t, rec.LastSyncedAt.IsZero(), "unchanged record must not be rewritten")
}

func TestFetchUserData_PersistenceFailureIsHard(t *testing.T) {
	records := newMemRecords(recordWithWallet("user-a", walletA, 100))
	records.saveErr["user-a"] = errors.New("disk full")
	ledger := &fakeLedger{readings: map[xp.WalletAddress]*BalanceReading{
		walletA: {Found: true, XP: 5000},
	}}
	handler := NewReconcileHandler(records, ledger, nil, nil, nil)

	_, err := handler.FetchUserData(context.Background(), walletA)
	assert.Error(t, err)
}
