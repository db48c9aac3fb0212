// Package xp содержит доменную модель XP-записи Superteam Academy.
// Это ядро бизнес-логики - здесь нет внешних зависимостей.
package xp

import "math"

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL CALCULATOR
// Чистая функция: XP -> уровень -> титул. Никаких побочных эффектов.
// ══════════════════════════════════════════════════════════════════════════════

// XP представляет очки опыта пользователя.
type XP int64

// IsValid проверяет, что XP неотрицательный.
func (x XP) IsValid() bool {
	return x >= 0
}

// Level представляет уровень пользователя, вычисляемый из XP.
type Level int

// LevelForXP вычисляет уровень на основе XP.
// Формула: level = floor(sqrt(xp / 100)).
// Отрицательный XP трактуется как 0.
func LevelForXP(xp XP) Level {
	if xp <= 0 {
		return 0
	}
	return Level(math.Floor(math.Sqrt(float64(xp) / 100)))
}

// MinXP возвращает минимальный XP, необходимый для уровня.
// Обратная функция к LevelForXP: level^2 * 100.
func (l Level) MinXP() XP {
	if l <= 0 {
		return 0
	}
	return XP(int64(l) * int64(l) * 100)
}

// ══════════════════════════════════════════════════════════════════════════════
// TITLES
// ══════════════════════════════════════════════════════════════════════════════

// LevelTitle представляет титул, привязанный к минимальному уровню.
type LevelTitle struct {
	// MinLevel - минимальный уровень для получения титула.
	MinLevel Level

	// Title - отображаемое название титула.
	Title string
}

// levelTitles - упорядоченный по возрастанию список порогов титулов.
// Титул пользователя - титул наибольшего порога, не превышающего уровень.
var levelTitles = []LevelTitle{
	{MinLevel: 0, Title: "Newcomer"},
	{MinLevel: 2, Title: "Builder"},
	{MinLevel: 5, Title: "Architect"},
	{MinLevel: 10, Title: "Legend"},
}

// TitleForLevel возвращает титул для уровня.
func TitleForLevel(level Level) string {
	title := levelTitles[0].Title
	for _, lt := range levelTitles {
		if level >= lt.MinLevel {
			title = lt.Title
		}
	}
	return title
}

// TitleForXP возвращает титул напрямую из XP.
func TitleForXP(xp XP) string {
	return TitleForLevel(LevelForXP(xp))
}

// Titles возвращает копию таблицы титулов (для отображения прогрессии).
func Titles() []LevelTitle {
	out := make([]LevelTitle, len(levelTitles))
	copy(out, levelTitles)
	return out
}
