package xp

import (
	"strings"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID представляет уникальный идентификатор пользователя.
type UserID string

// IsValid проверяет корректность идентификатора.
func (u UserID) IsValid() bool {
	s := string(u)
	return len(s) >= 1 && len(s) <= 64 && !strings.ContainsAny(s, " \t\n\r")
}

// String возвращает строковое представление идентификатора.
func (u UserID) String() string {
	return string(u)
}

// WalletAddress представляет base58-адрес кошелька в сети леджера.
// Формат проверяется на границе привязки identity; внутрь ядра
// некорректный адрес не попадает.
type WalletAddress string

// base58Alphabet - алфавит base58 (без 0, O, I, l).
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// IsValid проверяет формат адреса: 32-44 символа base58.
func (w WalletAddress) IsValid() bool {
	s := string(w)
	if len(s) < 32 || len(s) > 44 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(base58Alphabet, c) {
			return false
		}
	}
	return true
}

// String возвращает строковое представление адреса.
func (w WalletAddress) String() string {
	return string(w)
}

// ══════════════════════════════════════════════════════════════════════════════
// XP RECORD (AGGREGATE ROOT)
// Одна запись на пользователя. Два независимых источника истины:
// медленный on-chain баланс леджера и быстрый off-chain счётчик прогресса.
// Итоговый TotalXP — монотонный максимум обоих источников.
// ══════════════════════════════════════════════════════════════════════════════

// Record представляет сводную XP-запись пользователя.
type Record struct {
	// UserID - внутренний идентификатор пользователя.
	UserID UserID

	// WalletAddress - привязанный кошелёк (пустой, если не привязан).
	WalletAddress WalletAddress

	// OnChainXP - последний известный баланс XP-токена в леджере.
	OnChainXP XP

	// OffChainXP - локальный счётчик прогресса, растёт от активности.
	OffChainXP XP

	// TotalXP - производное значение: max(OnChainXP, OffChainXP).
	// Никогда не убывает за время жизни записи.
	TotalXP XP

	// CurrentStreak / LongestStreak - денормализованные значения стрика
	// (источник истины - streak.State, сюда попадают при обновлении).
	CurrentStreak int
	LongestStreak int

	// Счётчики прогресса.
	CoursesCompleted    int
	LessonsCompleted    int
	ChallengesCompleted int

	// LastActivityAt - момент последнего события активности.
	LastActivityAt time.Time

	// LastSyncedAt - момент последней записи реконсиляции.
	// Обновляется ТОЛЬКО при записи результата реконсиляции.
	LastSyncedAt time.Time

	// LeaderboardEligible - флаг участия в лидерборде (opt-out).
	LeaderboardEligible bool

	// CreatedAt / UpdatedAt - служебные временные метки.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord создаёт новую запись для пользователя.
// Запись создаётся при первом событии активности или первой реконсиляции.
func NewRecord(userID UserID, now time.Time) (*Record, error) {
	if !userID.IsValid() {
		return nil, shared.ErrInvalidUserID
	}
	return &Record{
		UserID:              userID,
		LeaderboardEligible: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Level возвращает уровень, всегда пересчитанный из TotalXP.
// Уровень не хранится отдельно от TotalXP.
func (r *Record) Level() Level {
	return LevelForXP(r.TotalXP)
}

// Title возвращает титул для текущего уровня.
func (r *Record) Title() string {
	return TitleForLevel(r.Level())
}

// HasWallet возвращает true, если к записи привязан кошелёк.
func (r *Record) HasWallet() bool {
	return r.WalletAddress != ""
}

// BindWallet привязывает кошелёк к записи.
// Формат адреса проверяется здесь - на границе identity.
func (r *Record) BindWallet(addr WalletAddress) error {
	if !addr.IsValid() {
		return shared.ErrInvalidWalletFmt
	}
	r.WalletAddress = addr
	return nil
}

// ApplyActivity применяет событие активности: увеличивает off-chain XP
// и продвигает LastActivityAt. Отрицательная дельта отклоняется.
// TotalXP пересчитывается монотонно.
func (r *Record) ApplyActivity(delta XP, at time.Time) error {
	if delta < 0 {
		return shared.ErrNegativeXP
	}
	r.OffChainXP += delta
	if at.After(r.LastActivityAt) {
		r.LastActivityAt = at
	}
	r.recomputeTotal()
	r.UpdatedAt = at
	return nil
}

// ApplyLedgerBalance применяет прочитанный баланс леджера.
// Возвращает true, если TotalXP изменился (и запись надо сохранить).
// LastSyncedAt обновляет вызывающая сторона при фактической записи.
func (r *Record) ApplyLedgerBalance(balance XP) bool {
	if balance < 0 {
		balance = 0
	}
	r.OnChainXP = balance
	prev := r.TotalXP
	r.recomputeTotal()
	return r.TotalXP != prev
}

// SyncedAt отмечает момент записи реконсиляции.
func (r *Record) SyncedAt(at time.Time) {
	r.LastSyncedAt = at
	r.UpdatedAt = at
}

// ApplyStreak денормализует значения стрика в запись.
func (r *Record) ApplyStreak(current, longest int) {
	r.CurrentStreak = current
	r.LongestStreak = longest
}

// recomputeTotal пересчитывает TotalXP по монотонной max-политике.
// Инвариант: TotalXP никогда не убывает.
func (r *Record) recomputeTotal() {
	total := r.OffChainXP
	if r.OnChainXP > total {
		total = r.OnChainXP
	}
	if total > r.TotalXP {
		r.TotalXP = total
	}
}

// MetricFor возвращает значение записи для поля сортировки лидерборда.
func (r *Record) MetricFor(field SortField) int64 {
	switch field {
	case SortByStreak:
		return int64(r.CurrentStreak)
	case SortByCourses:
		return int64(r.CoursesCompleted)
	case SortByChallenges:
		return int64(r.ChallengesCompleted)
	default:
		return int64(r.TotalXP)
	}
}

// SortField определяет поле сортировки лидерборда.
type SortField string

const (
	// SortByXP - сортировка по TotalXP (по умолчанию).
	SortByXP SortField = "xp"
	// SortByStreak - сортировка по текущему стрику.
	SortByStreak SortField = "streak"
	// SortByCourses - сортировка по завершённым курсам.
	SortByCourses SortField = "courses"
	// SortByChallenges - сортировка по решённым задачам.
	SortByChallenges SortField = "challenges"
)

// IsValid проверяет корректность поля сортировки.
func (f SortField) IsValid() bool {
	switch f {
	case SortByXP, SortByStreak, SortByCourses, SortByChallenges:
		return true
	}
	return false
}
