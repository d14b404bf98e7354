package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

func strPtr(v string) *string { return &v }

func TestNormalizeSessionsMergesPlayersAndGuestsBySeat(t *testing.T) {
	sessionID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	deckID := uuid.New()
	score := 2.5
	win := true
	played := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)

	rows := []sessionRow{{ID: sessionID, PlayedAt: played, GameType: strPtr("league"), Notes: strPtr("  ")}}
	players := []playerRow{
		{SessionID: sessionID, Seat: 2, UserID: bob, DisplayName: strPtr("Bob"), Username: strPtr("")},
		{SessionID: sessionID, Seat: 0, UserID: alice, Score: &score, IsWinner: &win, DeckID: &deckID, DeckName: strPtr("Ventrue Grinder")},
	}
	guests := []guestRow{{SessionID: sessionID, Seat: 1, GuestName: strPtr("Walk-in"), DeckName: strPtr("")}}

	got := normalizeSessions(rows, players, guests)
	if len(got) != 1 {
		t.Fatalf("expected 1 session, got %d", len(got))
	}
	s := got[0]
	if s.GameType == nil || *s.GameType != sessions.GameTypeLeague {
		t.Fatalf("unexpected game type: %v", s.GameType)
	}
	if s.Notes != nil {
		t.Fatalf("expected blank notes to be nil")
	}
	if len(s.Participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(s.Participants))
	}

	first, second, third := s.Participants[0], s.Participants[1], s.Participants[2]
	if first.UserID == nil || *first.UserID != alice || first.Score != 2.5 || !first.IsWinner {
		t.Fatalf("unexpected first seat: %+v", first)
	}
	if first.Profile != nil {
		t.Fatalf("expected no profile without profile columns")
	}
	if !second.IsGuest() || second.GuestName == nil || *second.GuestName != "Walk-in" || second.DeckName != nil {
		t.Fatalf("unexpected guest seat: %+v", second)
	}
	if third.UserID == nil || *third.UserID != bob || third.Score != 0 || third.IsWinner {
		t.Fatalf("unexpected third seat: %+v", third)
	}
	if third.Profile == nil || *third.Profile.DisplayName != "Bob" || third.Profile.Username != nil {
		t.Fatalf("unexpected profile: %+v", third.Profile)
	}
}

func TestNormalizeSessionsCoercesBadRows(t *testing.T) {
	sessionID := uuid.New()
	alice := uuid.New()
	high := 3.0

	rows := []sessionRow{{ID: sessionID, GameType: strPtr("ranked")}, {ID: uuid.New()}}
	players := []playerRow{
		{SessionID: sessionID, Seat: 0, UserID: alice, Score: &high},
		{SessionID: sessionID, Seat: 1, UserID: alice},
		{SessionID: uuid.New(), Seat: 0, UserID: uuid.New()},
	}
	guests := []guestRow{{SessionID: uuid.New(), Seat: 0}}

	got := normalizeSessions(rows, players, guests)
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if got[0].GameType != nil {
		t.Fatalf("expected unknown game type to be cleared")
	}
	if len(got[0].Participants) != 1 || got[0].Participants[0].Score != 3 {
		t.Fatalf("expected duplicate user seat to be dropped, got %+v", got[0].Participants)
	}
	if got[1].Participants == nil || len(got[1].Participants) != 0 {
		t.Fatalf("expected empty participant list, got %#v", got[1].Participants)
	}
}
