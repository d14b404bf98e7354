package stats

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerStatsForNotFound(t *testing.T) {
	items := []sessions.Session{session(0, seat(uuid.New(), 1, true), guest("g", 0, false))}
	if got := PlayerStatsFor(items, uuid.New()); got != nil {
		t.Fatalf("expected nil for unknown player, got %+v", got)
	}
	if got := PlayerStatsFor(nil, uuid.New()); got != nil {
		t.Fatalf("expected nil for empty history, got %+v", got)
	}
}

func TestPlayerStatsForAggregatesDecks(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	tremere := uuid.New()
	toreador := uuid.New()

	items := []sessions.Session{
		session(0, withDeck(seat(alice, 2, true), tremere, "Tremere Stealth"), seat(bob, 1, false)),
		session(1, withDeck(seat(alice, 0, false), toreador, "Toreador Toolbox")),
		session(2, withDeck(seat(alice, 1, false), tremere, "Tremere Stealth v2"), withDeck(seat(bob, 3, true), tremere, "Borrowed")),
		session(3, seat(alice, 0.5, false)),
	}

	got := PlayerStatsFor(items, alice)
	require.NotNil(t, got)
	assert.Equal(t, alice, got.UserID)
	assert.Equal(t, 4, got.GamesPlayed)
	assert.Equal(t, 1, got.GamesWon)
	assert.InDelta(t, 3.5, got.TotalVP, 1e-9)
	assert.InDelta(t, 25.0, got.WinRate, 1e-9)
	assert.InDelta(t, 0.875, got.VPPerGame, 1e-9)

	require.Len(t, got.Decks, 2)
	assert.Equal(t, tremere, got.Decks[0].DeckID)
	assert.Equal(t, "Tremere Stealth v2", got.Decks[0].DeckName)
	assert.Equal(t, 2, got.Decks[0].GamesPlayed)
	assert.Equal(t, 1, got.Decks[0].GamesWon)
	assert.InDelta(t, 1.5, got.Decks[0].AverageVP, 1e-9)
	assert.Equal(t, toreador, got.Decks[1].DeckID)

	require.NotNil(t, got.FavoriteDeck)
	assert.Equal(t, tremere, got.FavoriteDeck.DeckID)
}

func TestPlayerStatsWinRateIsNotRounded(t *testing.T) {
	alice := uuid.New()
	items := []sessions.Session{
		session(0, seat(alice, 1, true)),
		session(1, seat(alice, 0, false)),
		session(2, seat(alice, 0, false)),
	}
	got := PlayerStatsFor(items, alice)
	require.NotNil(t, got)
	assert.InDelta(t, 33.333333, got.WinRate, 1e-5)
	assert.Nil(t, got.FavoriteDeck)
	assert.Empty(t, got.Decks)
}

func TestPlayerStatsFavoriteDeckTieGoesToFirstSeen(t *testing.T) {
	alice := uuid.New()
	deckA := uuid.New()
	deckB := uuid.New()

	// deck A is the older build, but deck B's session comes first in the input
	items := []sessions.Session{
		session(5, withDeck(seat(alice, 1, false), deckB, "B")),
		session(1, withDeck(seat(alice, 4, true), deckA, "A")),
		session(6, withDeck(seat(alice, 0, false), deckB, "B")),
		session(2, withDeck(seat(alice, 2, true), deckA, "A")),
	}

	got := PlayerStatsFor(items, alice)
	require.NotNil(t, got)
	require.NotNil(t, got.FavoriteDeck)
	assert.Equal(t, deckB, got.FavoriteDeck.DeckID)
	assert.Equal(t, 2, got.FavoriteDeck.GamesPlayed)
}

func TestPlayerStatsFavoriteDeckIsACopy(t *testing.T) {
	alice := uuid.New()
	deck := uuid.New()
	items := []sessions.Session{session(0, withDeck(seat(alice, 1, true), deck, "Solo"))}

	got := PlayerStatsFor(items, alice)
	require.NotNil(t, got)
	got.FavoriteDeck.GamesPlayed = 99
	assert.Equal(t, 1, got.Decks[0].GamesPlayed)
}

func TestPlayerStatsIsIdempotent(t *testing.T) {
	alice := uuid.New()
	deck := uuid.New()
	items := []sessions.Session{
		session(0, withDeck(seat(alice, 2, true), deck, "Deck")),
		session(1, seat(alice, 1, false)),
	}
	if diff := cmp.Diff(PlayerStatsFor(items, alice), PlayerStatsFor(items, alice)); diff != "" {
		t.Fatalf("results differ between calls:\n%s", diff)
	}
}
