package sessions

import (
	"time"

	"github.com/google/uuid"
)

type GameType string

const (
	GameTypeCasual           GameType = "casual"
	GameTypeLeague           GameType = "league"
	GameTypeTournamentPrelim GameType = "tournament_prelim"
	GameTypeTournamentFinal  GameType = "tournament_final"
)

func (g GameType) Valid() bool {
	switch g {
	case GameTypeCasual, GameTypeLeague, GameTypeTournamentPrelim, GameTypeTournamentFinal:
		return true
	}
	return false
}

type Profile struct {
	DisplayName *string `json:"displayName,omitempty"`
	Username    *string `json:"username,omitempty"`
}

// Participant is one seat at a session. Registered players carry a UserID;
// guests carry only a GuestName.
type Participant struct {
	UserID    *uuid.UUID `json:"userId,omitempty"`
	GuestName *string    `json:"guestName,omitempty"`
	Score     float64    `json:"score"`
	IsWinner  bool       `json:"isWinner"`
	DeckID    *uuid.UUID `json:"deckId,omitempty"`
	DeckName  *string    `json:"deckName,omitempty"`
	Profile   *Profile   `json:"profile,omitempty"`
}

type Session struct {
	ID           uuid.UUID     `json:"id"`
	GameID       uuid.UUID     `json:"gameId"`
	PlayedAt     time.Time     `json:"playedAt"`
	GameType     *GameType     `json:"gameType,omitempty"`
	Notes        *string       `json:"notes,omitempty"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
	DeletedAt    *time.Time    `json:"deletedAt,omitempty"`
}

func (p Participant) IsGuest() bool {
	return p.UserID == nil
}

func (s Session) IsDeleted() bool {
	return s.DeletedAt != nil
}

// HasType reports whether the session matches any of types. An empty
// filter matches every session, including ones without a game type.
func (s Session) HasType(types []GameType) bool {
	if len(types) == 0 {
		return true
	}
	if s.GameType == nil {
		return false
	}
	for _, t := range types {
		if *s.GameType == t {
			return true
		}
	}
	return false
}

func FilterByType(items []Session, types []GameType) []Session {
	if len(types) == 0 {
		return items
	}
	out := make([]Session, 0, len(items))
	for _, s := range items {
		if s.HasType(types) {
			out = append(out, s)
		}
	}
	return out
}
