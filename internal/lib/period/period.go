// Package period содержит вспомогательные функции для работы с периодами:
// календарные предикаты (тот же день, ISO-неделя, месяц, год) и
// скользящие окна для отчётов.
package period

import (
	"time"

	"github.com/magabrotheeeer/spesesmart/internal/models"
)

// Contains сообщает, попадает ли момент t в календарный период p,
// содержащий ref. Сравнение выполняется в часовом поясе ref.
func Contains(p models.Period, t, ref time.Time) bool {
	t = t.In(ref.Location())
	switch p {
	case models.PeriodDaily:
		return sameDay(t, ref)
	case models.PeriodWeekly:
		ty, tw := t.ISOWeek()
		ry, rw := ref.ISOWeek()
		return ty == ry && tw == rw
	case models.PeriodMonthly:
		return t.Year() == ref.Year() && t.Month() == ref.Month()
	case models.PeriodYearly:
		return t.Year() == ref.Year()
	default:
		return true
	}
}

// RollingStart возвращает начало скользящего окна, заканчивающегося в now.
// В отличие от Contains окно не выровнено по календарю: неделя — это
// последние 7 дней от сегодняшней полуночи, месяц — последний месяц.
func RollingStart(p models.Period, now time.Time) time.Time {
	midnight := StartOfDay(now)
	switch p {
	case models.PeriodDaily:
		return midnight
	case models.PeriodMonthly:
		return midnight.AddDate(0, -1, 0)
	case models.PeriodYearly:
		return midnight.AddDate(-1, 0, 0)
	case models.PeriodAll:
		return time.Time{}
	default:
		return midnight.AddDate(0, 0, -7)
	}
}

// StartOfDay возвращает полночь дня t в его часовом поясе.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
