package decks

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("deck not found")

type Deck struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   *uuid.UUID `json:"ownerId,omitempty"`
	Name      string     `json:"name"`
	Cards     []DeckCard `json:"cards"`
	Tags      []string   `json:"tags"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// DeckCard references a card in the external card database by its numeric id.
type DeckCard struct {
	CardID   int `json:"cardId"`
	Quantity int `json:"quantity"`
}

type CardMetadata struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Types       []string `json:"types"`
	Disciplines []string `json:"disciplines,omitempty"`
	Text        string   `json:"text,omitempty"`
	Title       string   `json:"title,omitempty"`
}

type DeckCardEntry struct {
	Quantity int          `json:"quantity"`
	Card     CardMetadata `json:"card"`
}

func CardIDs(cards []DeckCard) []int {
	seen := make(map[int]struct{}, len(cards))
	ids := make([]int, 0, len(cards))
	for _, c := range cards {
		if _, ok := seen[c.CardID]; ok {
			continue
		}
		seen[c.CardID] = struct{}{}
		ids = append(ids, c.CardID)
	}
	return ids
}

// Entries joins a deck list with resolved metadata. Cards without metadata
// are dropped.
func Entries(cards []DeckCard, meta map[int]CardMetadata) []DeckCardEntry {
	out := make([]DeckCardEntry, 0, len(cards))
	for _, c := range cards {
		m, ok := meta[c.CardID]
		if !ok {
			continue
		}
		out = append(out, DeckCardEntry{Quantity: c.Quantity, Card: m})
	}
	return out
}
