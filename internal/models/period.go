package models

import (
	"fmt"
	"strings"
)

// Period задаёт гранулярность выборки для статистики и отчётов.
type Period string

const (
	PeriodDaily   Period = "DAILY"
	PeriodWeekly  Period = "WEEKLY"
	PeriodMonthly Period = "MONTHLY"
	PeriodYearly  Period = "YEARLY"
	PeriodAll     Period = "ALL"
)

// ParsePeriod разбирает название периода без учёта регистра.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q", s)
}
