package stats

import (
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

var base = time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func seat(userID uuid.UUID, score float64, won bool) sessions.Participant {
	return sessions.Participant{UserID: ptr(userID), Score: score, IsWinner: won}
}

func guest(name string, score float64, won bool) sessions.Participant {
	return sessions.Participant{GuestName: ptr(name), Score: score, IsWinner: won}
}

func withDeck(p sessions.Participant, deckID uuid.UUID, name string) sessions.Participant {
	p.DeckID = ptr(deckID)
	p.DeckName = ptr(name)
	return p
}

func withProfile(p sessions.Participant, displayName string) sessions.Participant {
	p.Profile = &sessions.Profile{DisplayName: ptr(displayName)}
	return p
}

func session(day int, players ...sessions.Participant) sessions.Session {
	return sessions.Session{
		ID:           uuid.New(),
		PlayedAt:     base.AddDate(0, 0, day),
		Participants: players,
	}
}
