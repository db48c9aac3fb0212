package streak

import (
	"context"

	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет контракт хранилища состояний стриков.
// Каждый переход сохраняется синхронно; операции идемпотентны в пределах
// календарного дня, поэтому last-write-wins при лёгкой конкуренции допустим.
type Repository interface {
	// Get возвращает состояние стрика пользователя.
	// Возвращает shared.ErrStreakNotFound, если состояния нет.
	Get(ctx context.Context, userID xp.UserID) (*State, error)

	// Save создаёт или обновляет состояние (upsert по UserID).
	Save(ctx context.Context, state *State) error
}
