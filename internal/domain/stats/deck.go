package stats

import (
	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

// DeckStatsFor returns nil when no participant in items played deckID.
//
// Every matching record counts, so a session where two seats share the deck
// contributes two games. Guest pilots count toward the deck totals but are
// left out of Pilots.
func DeckStatsFor(items []sessions.Session, deckID uuid.UUID) *DeckStats {
	type pilot struct {
		userID  uuid.UUID
		played  int
		profile latest[sessions.Profile]
	}
	var total tally
	var name latest[string]
	index := make(map[uuid.UUID]*pilot)
	order := make([]*pilot, 0)

	eachParticipant(items, nil, func(s sessions.Session, p sessions.Participant) {
		if p.DeckID == nil || *p.DeckID != deckID {
			return
		}
		total.add(p)
		name.observe(p.DeckName, s.PlayedAt)
		if p.UserID == nil {
			return
		}
		pl, ok := index[*p.UserID]
		if !ok {
			pl = &pilot{userID: *p.UserID}
			index[*p.UserID] = pl
			order = append(order, pl)
		}
		pl.played++
		pl.profile.observe(p.Profile, s.PlayedAt)
	})

	if total.played == 0 {
		return nil
	}

	pilots := make([]PilotSummary, 0, len(order))
	for _, pl := range order {
		pilots = append(pilots, PilotSummary{
			UserID:      pl.userID,
			Profile:     pl.profile.get(),
			GamesPlayed: pl.played,
		})
	}

	return &DeckStats{
		DeckID:      deckID,
		DeckName:    stringOrEmpty(name.get()),
		GamesPlayed: total.played,
		GamesWon:    total.won,
		TotalVP:     total.vp,
		WinRate:     total.winRate(),
		AverageVP:   total.average(),
		Pilots:      pilots,
	}
}
