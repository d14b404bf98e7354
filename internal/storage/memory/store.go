// Package memory is an in-process store for local development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/decks"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

type Store struct {
	mu       sync.RWMutex
	sessions []sessions.Session
	decks    map[uuid.UUID]decks.Deck
	profiles map[uuid.UUID]sessions.Profile
}

func NewStore() *Store {
	return &Store{
		decks:    make(map[uuid.UUID]decks.Deck),
		profiles: make(map[uuid.UUID]sessions.Profile),
	}
}

// PutProfile records display data for a user. Sessions pick it up on read.
func (s *Store) PutProfile(_ context.Context, userID uuid.UUID, p sessions.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[userID] = p
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) CreateSession(_ context.Context, v sessions.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.ID == v.ID {
			return fmt.Errorf("session %s already exists", v.ID)
		}
	}
	stored := cloneSession(v)
	for i := range stored.Participants {
		p := &stored.Participants[i]
		if p.DeckID != nil {
			if _, ok := s.decks[*p.DeckID]; !ok {
				return fmt.Errorf("seat %d deck %s: %w", i, *p.DeckID, decks.ErrNotFound)
			}
		}
		p.Profile = nil
	}
	s.sessions = append(s.sessions, stored)
	return nil
}

func (s *Store) ListSessionsByGame(_ context.Context, gameID uuid.UUID) ([]sessions.Session, error) {
	items := s.byGame(gameID)
	sort.SliceStable(items, func(i, j int) bool { return items[i].PlayedAt.Before(items[j].PlayedAt) })
	return items, nil
}

func (s *Store) ListRecentSessions(_ context.Context, gameID uuid.UUID, limit int) ([]sessions.Session, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	items := s.byGame(gameID)
	sort.SliceStable(items, func(i, j int) bool { return items[i].PlayedAt.After(items[j].PlayedAt) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) byGame(gameID uuid.UUID) []sessions.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]sessions.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		if v.GameID != gameID || v.IsDeleted() {
			continue
		}
		items = append(items, s.withProfiles(cloneSession(v)))
	}
	return items
}

func (s *Store) withProfiles(v sessions.Session) sessions.Session {
	for i := range v.Participants {
		p := &v.Participants[i]
		if p.UserID == nil {
			continue
		}
		if prof, ok := s.profiles[*p.UserID]; ok && (prof.DisplayName != nil || prof.Username != nil) {
			p.Profile = &prof
		}
	}
	return v
}

func (s *Store) SaveDeck(_ context.Context, d decks.Deck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.decks[d.ID]; ok {
		d.CreatedAt = existing.CreatedAt
		if existing.OwnerID != nil {
			d.OwnerID = existing.OwnerID
		}
	}
	s.decks[d.ID] = cloneDeck(d)
	return nil
}

func (s *Store) GetDeck(_ context.Context, id uuid.UUID) (decks.Deck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decks[id]
	if !ok || d.DeletedAt != nil {
		return decks.Deck{}, decks.ErrNotFound
	}
	return cloneDeck(d), nil
}

func (s *Store) UpdateDeckTags(_ context.Context, id uuid.UUID, tags []string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decks[id]
	if !ok || d.DeletedAt != nil {
		return decks.ErrNotFound
	}
	d.Tags = append([]string(nil), tags...)
	d.UpdatedAt = updatedAt
	s.decks[id] = d
	return nil
}

func cloneSession(v sessions.Session) sessions.Session {
	v.Participants = append([]sessions.Participant(nil), v.Participants...)
	return v
}

func cloneDeck(d decks.Deck) decks.Deck {
	d.Cards = append(make([]decks.DeckCard, 0, len(d.Cards)), d.Cards...)
	d.Tags = append(make([]string, 0, len(d.Tags)), d.Tags...)
	return d
}
