package stats

import (
	"errors"
	"fmt"
	"time"
)

type Period string

const (
	PeriodAll   Period = "all"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

var ErrUnknownPeriod = errors.New("unknown period")

func ParsePeriod(raw string) (Period, error) {
	switch Period(raw) {
	case "", PeriodAll:
		return PeriodAll, nil
	case PeriodMonth, PeriodYear:
		return Period(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, raw)
}

// ResolvePeriod turns a period label into the lower bound Leaderboard expects.
// PeriodAll has no bound.
func ResolvePeriod(p Period, now time.Time) (*time.Time, error) {
	var from time.Time
	switch p {
	case "", PeriodAll:
		return nil, nil
	case PeriodMonth:
		from = now.AddDate(0, -1, 0)
	case PeriodYear:
		from = now.AddDate(-1, 0, 0)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
	}
	return &from, nil
}
