// Package streak содержит доменную модель дневных стриков Superteam Academy.
// Стрик - количество подряд идущих календарных дней с активностью.
// "Заморозка" (freeze) позволяет перекрыть ровно один пропущенный день.
package streak

import (
	"time"

	"github.com/superteam-academy/xp-engine/internal/domain/shared"
	"github.com/superteam-academy/xp-engine/internal/domain/xp"
	"github.com/superteam-academy/xp-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK STATE
// Машина состояний с дневной гранулярностью. Все переходы идемпотентны
// в пределах одного календарного дня: повторный вызов в тот же день - no-op.
// ══════════════════════════════════════════════════════════════════════════════

// State представляет состояние стрика одного пользователя.
type State struct {
	// UserID - владелец стрика.
	UserID xp.UserID

	// CurrentStreak - текущая длина стрика в днях.
	CurrentStreak int

	// LongestStreak - рекордная длина. Инвариант: LongestStreak >= CurrentStreak.
	LongestStreak int

	// LastActiveDate - последний день с активностью (начало дня UTC).
	// Нулевое время = активности ещё не было.
	LastActiveDate time.Time

	// FreezesAvailable - количество доступных заморозок.
	FreezesAvailable int

	// FreezeActiveDate - день, который был перекрыт заморозкой
	// (нулевое время = заморозка не использована в текущем стрике).
	FreezeActiveDate time.Time
}

// NewState создаёт пустое состояние стрика с одной стартовой заморозкой.
func NewState(userID xp.UserID) *State {
	return &State{
		UserID:           userID,
		FreezesAvailable: 1,
	}
}

// TransitionKind описывает, что произошло при переходе.
type TransitionKind string

const (
	// TransitionStarted - первый активный день.
	TransitionStarted TransitionKind = "started"
	// TransitionNoop - повторная активность в тот же день.
	TransitionNoop TransitionKind = "noop"
	// TransitionExtended - стрик продолжен (+1 день).
	TransitionExtended TransitionKind = "extended"
	// TransitionFrozen - пропуск перекрыт заморозкой, стрик продолжен.
	TransitionFrozen TransitionKind = "frozen"
	// TransitionReset - стрик сброшен до 1.
	TransitionReset TransitionKind = "reset"
)

// Transition содержит результат перехода состояния.
type Transition struct {
	// Kind - вид перехода.
	Kind TransitionKind

	// CurrentStreak / LongestStreak - значения после перехода.
	CurrentStreak int
	LongestStreak int

	// Milestone - достигнутая веха (nil, если вехи нет).
	Milestone *Milestone
}

// Advance выполняет переход состояния для активности "сегодня".
// useFreeze - внешний триггер потребления заморозки: при пропуске
// более одного дня заморозка превращает сброс в продолжение.
// Кто и когда авторизует заморозку - решает вызывающая сторона.
func (s *State) Advance(today time.Time, useFreeze bool) Transition {
	day := timeutil.StartOfDay(today)

	// Первый активный день.
	if s.LastActiveDate.IsZero() {
		s.CurrentStreak = 1
		if s.LongestStreak < 1 {
			s.LongestStreak = 1
		}
		s.LastActiveDate = day
		return s.transition(TransitionStarted)
	}

	gap := timeutil.DaysBetween(s.LastActiveDate, day)

	// Повторная активность в тот же день (или часы назад) - идемпотентный no-op.
	if gap <= 0 {
		return s.transition(TransitionNoop)
	}

	// Ровно один день - обычное продолжение.
	if gap == 1 {
		return s.extend(day, TransitionExtended)
	}

	// Пропуск более одного дня с внешне подтверждённой заморозкой:
	// трактуем как однодневный пропуск.
	if useFreeze && s.FreezesAvailable > 0 {
		s.FreezesAvailable--
		s.FreezeActiveDate = day.AddDate(0, 0, -1)
		return s.extend(day, TransitionFrozen)
	}

	// Стрик сломан: сброс до 1, рекорд не трогаем.
	// Новый стрик начинается со свежей заморозкой.
	s.CurrentStreak = 1
	s.LastActiveDate = day
	s.FreezeActiveDate = time.Time{}
	if s.FreezesAvailable < 1 {
		s.FreezesAvailable = 1
	}
	return s.transition(TransitionReset)
}

// extend продолжает стрик на один день.
func (s *State) extend(day time.Time, kind TransitionKind) Transition {
	s.CurrentStreak++
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastActiveDate = day
	return s.transition(kind)
}

// transition собирает результат перехода.
func (s *State) transition(kind TransitionKind) Transition {
	t := Transition{
		Kind:          kind,
		CurrentStreak: s.CurrentStreak,
		LongestStreak: s.LongestStreak,
	}
	// Веха засчитывается только при фактическом продвижении стрика.
	if kind == TransitionExtended || kind == TransitionFrozen || kind == TransitionStarted {
		t.Milestone = MilestoneFor(s.CurrentStreak)
	}
	return t
}

// AtRisk возвращает true, если стрик активен, но сегодня активности ещё нет.
func (s *State) AtRisk(now time.Time) bool {
	if s.CurrentStreak == 0 || s.LastActiveDate.IsZero() {
		return false
	}
	return timeutil.DaysBetween(s.LastActiveDate, timeutil.StartOfDay(now)) >= 1
}

// Validate проверяет инварианты состояния.
func (s *State) Validate() error {
	if !s.UserID.IsValid() {
		return shared.ErrInvalidUserID
	}
	if s.CurrentStreak < 0 || s.LongestStreak < s.CurrentStreak {
		return shared.ErrInvalidState
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MILESTONES
// ══════════════════════════════════════════════════════════════════════════════

// Milestone представляет именованную веху стрика с XP-бонусом.
// Начисление бонуса - забота вызывающей стороны; движок только сообщает.
type Milestone struct {
	// Days - длина стрика для вехи.
	Days int

	// Name - название вехи.
	Name string

	// XPReward - размер XP-бонуса.
	XPReward int
}

// milestones - таблица вех по возрастанию.
var milestones = []Milestone{
	{Days: 3, Name: "Getting Started", XPReward: 25},
	{Days: 7, Name: "Week Warrior", XPReward: 100},
	{Days: 14, Name: "Two Week Champion", XPReward: 200},
	{Days: 30, Name: "Monthly Master", XPReward: 500},
	{Days: 60, Name: "Two Month Titan", XPReward: 1000},
	{Days: 100, Name: "Consistency King", XPReward: 2000},
	{Days: 365, Name: "Yearly Legend", XPReward: 10000},
}

// MilestoneFor возвращает веху для точной длины стрика или nil.
func MilestoneFor(days int) *Milestone {
	for i := range milestones {
		if milestones[i].Days == days {
			m := milestones[i]
			return &m
		}
	}
	return nil
}

// NextMilestoneAfter возвращает ближайшую веху строго после days или nil,
// если все вехи пройдены.
func NextMilestoneAfter(days int) *Milestone {
	for i := range milestones {
		if milestones[i].Days > days {
			m := milestones[i]
			return &m
		}
	}
	return nil
}
