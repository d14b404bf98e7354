package stats

import (
	"time"

	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

type tally struct {
	played int
	won    int
	vp     float64
}

func (t *tally) add(p sessions.Participant) {
	t.played++
	if p.IsWinner {
		t.won++
	}
	t.vp += p.Score
}

func (t tally) winRate() float64 {
	return WinRate(t.won, t.played)
}

func (t tally) average() float64 {
	return Average(t.vp, t.played)
}

// latest keeps the value seen at the most recent PlayedAt. Ties go to the
// later record in traversal order.
type latest[T any] struct {
	value *T
	at    time.Time
}

func (l *latest[T]) observe(v *T, at time.Time) {
	if v == nil {
		return
	}
	if l.value == nil || !at.Before(l.at) {
		c := *v
		l.value = &c
		l.at = at
	}
}

func (l latest[T]) get() *T {
	return l.value
}

func eachParticipant(items []sessions.Session, dateFrom *time.Time, fn func(sessions.Session, sessions.Participant)) {
	for _, s := range items {
		if dateFrom != nil && s.PlayedAt.Before(*dateFrom) {
			continue
		}
		for _, p := range s.Participants {
			fn(s, p)
		}
	}
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
