// Package leaderboard содержит доменную модель лидерборда XP Engine.
// Лидерборд строится поверх согласованных XP-записей: один и тот же набор
// данных обслуживает и сверку с он-чейн реестром, и рейтинговые запросы.
package leaderboard

import (
	"fmt"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
	"github.com/superteam-academy/xp-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Timeframe определяет временное окно лидерборда.
// Окно фильтрует участников по времени последней активности.
type Timeframe string

const (
	// TimeframeAllTime - рейтинг за всё время, без фильтрации.
	TimeframeAllTime Timeframe = "all-time"
	// TimeframeMonthly - участники, активные за последний календарный месяц.
	TimeframeMonthly Timeframe = "monthly"
	// TimeframeWeekly - участники, активные за последние 7 дней.
	TimeframeWeekly Timeframe = "weekly"
	// TimeframeDaily - участники, активные с начала текущего дня (UTC).
	TimeframeDaily Timeframe = "daily"
)

// IsValid проверяет, что timeframe - одно из поддерживаемых окон.
func (t Timeframe) IsValid() bool {
	switch t {
	case TimeframeAllTime, TimeframeMonthly, TimeframeWeekly, TimeframeDaily:
		return true
	}
	return false
}

// Since возвращает нижнюю границу активности для окна.
// Нулевое время означает "без ограничения" (all-time).
func (t Timeframe) Since(now time.Time) time.Time {
	switch t {
	case TimeframeMonthly:
		return timeutil.MonthAgo(now)
	case TimeframeWeekly:
		return timeutil.DaysAgo(now, 7)
	case TimeframeDaily:
		return timeutil.StartOfDay(now)
	default:
		return time.Time{}
	}
}

// String возвращает строковое представление окна.
func (t Timeframe) String() string {
	return string(t)
}

// Rank представляет позицию участника в лидерборде.
// Rank начинается с 1 (первое место).
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsTop10 возвращает true, если участник в топ-10.
func (r Rank) IsTop10() bool {
	return r >= 1 && r <= 10
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY SPEC
// ══════════════════════════════════════════════════════════════════════════════

// Лимиты пагинации. Limit=0 в запросе означает DefaultLimit.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// QuerySpec описывает один валидируемый запрос к лидерборду.
// Перед исполнением спецификация обязана пройти Normalize: обработчики
// не работают с сырыми параметрами запроса.
type QuerySpec struct {
	// Timeframe - временное окно. Пустое значение означает all-time.
	Timeframe Timeframe

	// SortBy - метрика сортировки. Пустое значение означает сортировку по XP.
	SortBy xp.SortField

	// Limit - размер страницы, 1..MaxLimit.
	Limit int

	// Offset - смещение от вершины рейтинга, >= 0.
	Offset int
}

// Normalize подставляет значения по умолчанию и валидирует спецификацию.
// Возвращает нормализованную копию; исходный QuerySpec не изменяется.
func (q QuerySpec) Normalize() (QuerySpec, error) {
	if q.Timeframe == "" {
		q.Timeframe = TimeframeAllTime
	}
	if q.SortBy == "" {
		q.SortBy = xp.SortByXP
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}

	if !q.Timeframe.IsValid() {
		return q, fmt.Errorf("%w: %q", shared.ErrInvalidTimeframe, q.Timeframe)
	}
	if !q.SortBy.IsValid() {
		return q, fmt.Errorf("%w: %q", shared.ErrInvalidSortBy, q.SortBy)
	}
	if q.Limit < 0 || q.Limit > MaxLimit {
		return q, fmt.Errorf("%w: limit %d out of range 1..%d", shared.ErrInvalidPage, q.Limit, MaxLimit)
	}
	if q.Offset < 0 {
		return q, fmt.Errorf("%w: offset %d is negative", shared.ErrInvalidPage, q.Offset)
	}

	return q, nil
}

// CacheKey возвращает детерминированный ключ для кэширования результата.
// Одинаковые нормализованные спецификации дают одинаковый ключ.
func (q QuerySpec) CacheKey() string {
	return fmt.Sprintf("leaderboard:%s:%s:%d:%d", q.Timeframe, q.SortBy, q.Limit, q.Offset)
}
