package stats

import (
	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

// PlayerStatsFor returns nil when userID never appears in items.
func PlayerStatsFor(items []sessions.Session, userID uuid.UUID) *PlayerStats {
	type bucket struct {
		tally
		deckID uuid.UUID
		name   latest[string]
	}
	var total tally
	var profile latest[sessions.Profile]
	index := make(map[uuid.UUID]*bucket)
	order := make([]*bucket, 0)

	eachParticipant(items, nil, func(s sessions.Session, p sessions.Participant) {
		if p.UserID == nil || *p.UserID != userID {
			return
		}
		total.add(p)
		profile.observe(p.Profile, s.PlayedAt)
		if p.DeckID == nil {
			return
		}
		b, ok := index[*p.DeckID]
		if !ok {
			b = &bucket{deckID: *p.DeckID}
			index[*p.DeckID] = b
			order = append(order, b)
		}
		b.add(p)
		b.name.observe(p.DeckName, s.PlayedAt)
	})

	if total.played == 0 {
		return nil
	}

	decks := make([]DeckPerformance, 0, len(order))
	for _, b := range order {
		decks = append(decks, DeckPerformance{
			DeckID:      b.deckID,
			DeckName:    stringOrEmpty(b.name.get()),
			GamesPlayed: b.played,
			GamesWon:    b.won,
			AverageVP:   b.average(),
		})
	}

	// strict > keeps the first-seen bucket on ties
	var favorite *DeckPerformance
	for i := range decks {
		if favorite == nil || decks[i].GamesPlayed > favorite.GamesPlayed {
			d := decks[i]
			favorite = &d
		}
	}

	return &PlayerStats{
		LeaderboardEntry: LeaderboardEntry{
			UserID:      userID,
			Profile:     profile.get(),
			GamesPlayed: total.played,
			GamesWon:    total.won,
			TotalVP:     total.vp,
			WinRate:     total.winRate(),
			VPPerGame:   total.average(),
		},
		Decks:        decks,
		FavoriteDeck: favorite,
	}
}
