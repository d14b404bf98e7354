package postgres

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

type sessionRow struct {
	ID        uuid.UUID
	GameID    uuid.UUID
	PlayedAt  time.Time
	GameType  *string
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// playerRow is a session_players row joined with the player's profile.
type playerRow struct {
	SessionID   uuid.UUID
	Seat        int
	UserID      uuid.UUID
	Score       *float64
	IsWinner    *bool
	DeckID      *uuid.UUID
	DeckName    *string
	DisplayName *string
	Username    *string
}

type guestRow struct {
	SessionID uuid.UUID
	Seat      int
	GuestName *string
	Score     *float64
	IsWinner  *bool
	DeckID    *uuid.UUID
	DeckName  *string
}

type seated struct {
	seat int
	p    sessions.Participant
}

// normalizeSessions assembles storage rows into sessions, keeping the order
// of rows. Participant rows that reference an unknown session are dropped, a
// repeated user inside one session keeps only its first seat, blank strings
// become nil and unknown game types are cleared.
func normalizeSessions(rows []sessionRow, players []playerRow, guests []guestRow) []sessions.Session {
	seats := make(map[uuid.UUID][]seated, len(rows))
	known := make(map[uuid.UUID]struct{}, len(rows))
	for _, r := range rows {
		known[r.ID] = struct{}{}
	}

	seen := make(map[uuid.UUID]map[uuid.UUID]struct{})
	for _, r := range players {
		if _, ok := known[r.SessionID]; !ok {
			continue
		}
		if seen[r.SessionID] == nil {
			seen[r.SessionID] = make(map[uuid.UUID]struct{})
		}
		if _, dup := seen[r.SessionID][r.UserID]; dup {
			continue
		}
		seen[r.SessionID][r.UserID] = struct{}{}

		userID := r.UserID
		p := sessions.Participant{
			UserID:   &userID,
			Score:    floatOrZero(r.Score),
			IsWinner: boolOrFalse(r.IsWinner),
			DeckID:   r.DeckID,
			DeckName: blankToNil(r.DeckName),
		}
		displayName, username := blankToNil(r.DisplayName), blankToNil(r.Username)
		if displayName != nil || username != nil {
			p.Profile = &sessions.Profile{DisplayName: displayName, Username: username}
		}
		seats[r.SessionID] = append(seats[r.SessionID], seated{seat: r.Seat, p: p})
	}

	for _, r := range guests {
		if _, ok := known[r.SessionID]; !ok {
			continue
		}
		seats[r.SessionID] = append(seats[r.SessionID], seated{seat: r.Seat, p: sessions.Participant{
			GuestName: blankToNil(r.GuestName),
			Score:     floatOrZero(r.Score),
			IsWinner:  boolOrFalse(r.IsWinner),
			DeckID:    r.DeckID,
			DeckName:  blankToNil(r.DeckName),
		}})
	}

	out := make([]sessions.Session, 0, len(rows))
	for _, r := range rows {
		list := seats[r.ID]
		sort.SliceStable(list, func(i, j int) bool { return list[i].seat < list[j].seat })
		participants := make([]sessions.Participant, 0, len(list))
		for _, s := range list {
			participants = append(participants, s.p)
		}
		out = append(out, sessions.Session{
			ID:           r.ID,
			GameID:       r.GameID,
			PlayedAt:     r.PlayedAt,
			GameType:     parseGameType(r.GameType),
			Notes:        blankToNil(r.Notes),
			Participants: participants,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
			DeletedAt:    r.DeletedAt,
		})
	}
	return out
}

func parseGameType(raw *string) *sessions.GameType {
	if raw == nil {
		return nil
	}
	gt := sessions.GameType(strings.TrimSpace(*raw))
	if !gt.Valid() {
		return nil
	}
	return &gt
}

func gameTypeValue(gt *sessions.GameType) *string {
	if gt == nil {
		return nil
	}
	v := string(*gt)
	return &v
}

func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	return v
}

func floatOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func boolOrFalse(v *bool) bool {
	return v != nil && *v
}
