package leaderboard

import (
	"sort"
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/xp"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry представляет одну строку лидерборда.
// Содержит всю информацию для отображения участника в рейтинге.
type Entry struct {
	// Rank - позиция в рейтинге, с учётом смещения страницы.
	Rank Rank

	// UserID - идентификатор участника.
	UserID string

	// WalletAddress - привязанный кошелёк, пустая строка если не привязан.
	WalletAddress string

	// TotalXP - согласованное количество очков опыта.
	TotalXP int64

	// Level - уровень, вычисленный из TotalXP.
	Level int

	// Title - звание уровня (Newcomer, Builder, Architect, Legend).
	Title string

	// CurrentStreak - текущая серия активных дней.
	CurrentStreak int

	// CoursesCompleted - завершённые курсы.
	CoursesCompleted int

	// ChallengesCompleted - решённые задачи.
	ChallengesCompleted int

	// LastActivityAt - время последней активности участника.
	LastActivityAt time.Time
}

// EntryFromRecord строит строку лидерборда из XP-записи. Ранг не заполняется:
// он известен только после сортировки и пагинации.
func EntryFromRecord(rec *xp.Record) Entry {
	return Entry{
		UserID:              string(rec.UserID),
		WalletAddress:       string(rec.WalletAddress),
		TotalXP:             int64(rec.TotalXP),
		Level:               int(rec.Level()),
		Title:               rec.Title(),
		CurrentStreak:       rec.CurrentStreak,
		CoursesCompleted:    rec.CoursesCompleted,
		ChallengesCompleted: rec.ChallengesCompleted,
		LastActivityAt:      rec.LastActivityAt,
	}
}

// Result представляет страницу лидерборда.
type Result struct {
	// Entries - строки текущей страницы, отсортированные по рангу.
	Entries []Entry

	// Total - общее количество участников, попавших в окно,
	// до применения пагинации.
	Total int

	// Timeframe - окно, по которому построен результат.
	Timeframe Timeframe

	// SortBy - метрика сортировки.
	SortBy xp.SortField

	// GeneratedAt - момент построения результата.
	GeneratedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// SortRecords детерминированно сортирует записи для лидерборда:
// по убыванию метрики сортировки, при равенстве - по убыванию TotalXP,
// при полном равенстве - по возрастанию UserID. Два вызова на одном
// наборе данных всегда дают одинаковый порядок.
func SortRecords(records []*xp.Record, field xp.SortField) {
	sort.Slice(records, func(i, j int) bool {
		mi, mj := records[i].MetricFor(field), records[j].MetricFor(field)
		if mi != mj {
			return mi > mj
		}
		if records[i].TotalXP != records[j].TotalXP {
			return records[i].TotalXP > records[j].TotalXP
		}
		return records[i].UserID < records[j].UserID
	})
}

// Page строит страницу лидерборда из уже отфильтрованного набора записей.
// Сортировка выполняется внутри; ранги присваиваются сквозной нумерацией
// от вершины рейтинга (offset + позиция на странице).
func Page(records []*xp.Record, spec QuerySpec, now time.Time) Result {
	SortRecords(records, spec.SortBy)

	total := len(records)
	from := spec.Offset
	if from > total {
		from = total
	}
	to := from + spec.Limit
	if to > total {
		to = total
	}

	entries := make([]Entry, 0, to-from)
	for i := from; i < to; i++ {
		entry := EntryFromRecord(records[i])
		entry.Rank = Rank(i + 1)
		entries = append(entries, entry)
	}

	return Result{
		Entries:     entries,
		Total:       total,
		Timeframe:   spec.Timeframe,
		SortBy:      spec.SortBy,
		GeneratedAt: now.UTC(),
	}
}
