package xp

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP RECORD REPOSITORY INTERFACE
// Единственный путь к персистентному хранилищу XP-записей.
// Его делят Reconciler и LeaderboardQueryEngine - прямых ссылок
// между компонентами нет. Реализация - в infrastructure слое.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет контракт хранилища XP-записей.
type Repository interface {
	// GetByUserID возвращает запись пользователя.
	// Возвращает shared.ErrRecordNotFound, если записи нет.
	GetByUserID(ctx context.Context, userID UserID) (*Record, error)

	// GetByWallet возвращает запись по привязанному кошельку.
	GetByWallet(ctx context.Context, wallet WalletAddress) (*Record, error)

	// Save создаёт или обновляет запись целиком (upsert по UserID).
	Save(ctx context.Context, record *Record) error

	// ListWithWallet возвращает все записи с привязанным кошельком.
	// Используется батч-реконсиляцией.
	ListWithWallet(ctx context.Context) ([]*Record, error)

	// ListEligible возвращает записи-кандидаты лидерборда:
	// LeaderboardEligible == true и LastActivityAt >= since.
	// Нулевое since означает без фильтра по времени (all-time).
	ListEligible(ctx context.Context, since time.Time) ([]*Record, error)

	// CountStrictlyAbove возвращает количество eligible-пользователей,
	// чья метрика по полю field СТРОГО больше value.
	// Используется getUserRank: равные значения делят один ранг.
	CountStrictlyAbove(ctx context.Context, field SortField, value int64) (int, error)

	// Stats возвращает агрегированную статистику по всем записям.
	Stats(ctx context.Context) (*AggregateStats, error)
}

// AggregateStats содержит сводную статистику XP-записей.
type AggregateStats struct {
	// TotalUsers - общее количество записей.
	TotalUsers int

	// TotalXP - сумма TotalXP по всем записям.
	TotalXP int64

	// AverageXP - средний TotalXP.
	AverageXP int64

	// TopLevel - уровень лидера.
	TopLevel Level

	// UsersWithWallet - количество записей с привязанным кошельком.
	UsersWithWallet int
}
