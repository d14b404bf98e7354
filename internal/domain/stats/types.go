package stats

import (
	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

type LeaderboardEntry struct {
	UserID      uuid.UUID         `json:"userId"`
	Profile     *sessions.Profile `json:"profile,omitempty"`
	GamesPlayed int               `json:"gamesPlayed"`
	GamesWon    int               `json:"gamesWon"`
	TotalVP     float64           `json:"totalVp"`
	WinRate     float64           `json:"winRate"`
	VPPerGame   float64           `json:"vpPerGame"`
}

type DeckPerformance struct {
	DeckID      uuid.UUID `json:"deckId"`
	DeckName    string    `json:"deckName"`
	GamesPlayed int       `json:"gamesPlayed"`
	GamesWon    int       `json:"gamesWon"`
	AverageVP   float64   `json:"averageVp"`
}

type PlayerStats struct {
	LeaderboardEntry
	Decks        []DeckPerformance `json:"decks"`
	FavoriteDeck *DeckPerformance  `json:"favoriteDeck,omitempty"`
}

type PilotSummary struct {
	UserID      uuid.UUID         `json:"userId"`
	Profile     *sessions.Profile `json:"profile,omitempty"`
	GamesPlayed int               `json:"gamesPlayed"`
}

type DeckStats struct {
	DeckID      uuid.UUID      `json:"deckId"`
	DeckName    string         `json:"deckName"`
	GamesPlayed int            `json:"gamesPlayed"`
	GamesWon    int            `json:"gamesWon"`
	TotalVP     float64        `json:"totalVp"`
	WinRate     float64        `json:"winRate"`
	AverageVP   float64        `json:"averageVp"`
	Pilots      []PilotSummary `json:"pilots"`
}
