package projections

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/domain/decks"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
	"github.com/lutefd/tabletop-api/internal/domain/stats"
	"github.com/lutefd/tabletop-api/internal/events"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidSession = errors.New("invalid session")
	ErrInvalidDeck    = errors.New("invalid deck")
)

type Store interface {
	ListSessionsByGame(ctx context.Context, gameID uuid.UUID) ([]sessions.Session, error)
	ListRecentSessions(ctx context.Context, gameID uuid.UUID, limit int) ([]sessions.Session, error)
	CreateSession(ctx context.Context, v sessions.Session) error
	SaveDeck(ctx context.Context, d decks.Deck) error
	GetDeck(ctx context.Context, id uuid.UUID) (decks.Deck, error)
	UpdateDeckTags(ctx context.Context, id uuid.UUID, tags []string, updatedAt time.Time) error
}

type CardResolver interface {
	Resolve(ctx context.Context, ids []int) (map[int]decks.CardMetadata, error)
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

type Options struct {
	GameID   uuid.UUID
	CacheTTL time.Duration
	Cache    Cache
	Bus      *events.Bus
	Logger   *zap.Logger
	Now      func() time.Time
}

type Service struct {
	store    Store
	cards    CardResolver
	cache    Cache
	bus      *events.Bus
	logger   *zap.Logger
	gameID   uuid.UUID
	cacheTTL time.Duration
	now      func() time.Time
}

func NewService(store Store, cards CardResolver, opts Options) *Service {
	s := &Service{
		store:    store,
		cards:    cards,
		cache:    opts.Cache,
		bus:      opts.Bus,
		logger:   opts.Logger,
		gameID:   opts.GameID,
		cacheTTL: opts.CacheTTL,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.bus == nil {
		s.bus = events.NewBus()
	}
	if s.cache != nil {
		s.bus.Subscribe(events.SessionRecorded, s.invalidateLeaderboards)
	}
	return s
}

func (s *Service) GameID() uuid.UUID {
	return s.gameID
}

type LeaderboardQuery struct {
	Period    stats.Period
	GameTypes []sessions.GameType
}

func (q LeaderboardQuery) cacheKey(gameID uuid.UUID) string {
	period := q.Period
	if period == "" {
		period = stats.PeriodAll
	}
	types := make([]string, 0, len(q.GameTypes))
	for _, t := range q.GameTypes {
		types = append(types, string(t))
	}
	sort.Strings(types)
	return fmt.Sprintf("%s%s:%s", leaderboardPrefix(gameID), period, strings.Join(types, ","))
}

func leaderboardPrefix(gameID uuid.UUID) string {
	return "leaderboard:" + gameID.String() + ":"
}

func (s *Service) Leaderboard(ctx context.Context, q LeaderboardQuery) ([]stats.LeaderboardEntry, error) {
	dateFrom, err := stats.ResolvePeriod(q.Period, s.now())
	if err != nil {
		return nil, err
	}

	key := q.cacheKey(s.gameID)
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("leaderboard cache read", zap.String("key", key), zap.Error(err))
		} else if ok {
			var cached []stats.LeaderboardEntry
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	items, err := s.store.ListSessionsByGame(ctx, s.gameID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	entries := stats.Leaderboard(sessions.FilterByType(items, q.GameTypes), dateFrom)

	if s.cache != nil {
		raw, err := json.Marshal(entries)
		if err == nil {
			err = s.cache.Set(ctx, key, raw, s.cacheTTL)
		}
		if err != nil {
			s.logger.Warn("leaderboard cache write", zap.String("key", key), zap.Error(err))
		}
	}
	return entries, nil
}

func (s *Service) PlayerStats(ctx context.Context, userID uuid.UUID) (*stats.PlayerStats, error) {
	items, err := s.store.ListSessionsByGame(ctx, s.gameID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	result := stats.PlayerStatsFor(items, userID)
	if result == nil {
		return nil, ErrNotFound
	}
	return result, nil
}

func (s *Service) DeckStats(ctx context.Context, deckID uuid.UUID) (*stats.DeckStats, error) {
	items, err := s.store.ListSessionsByGame(ctx, s.gameID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	result := stats.DeckStatsFor(items, deckID)
	if result == nil {
		return nil, ErrNotFound
	}
	return result, nil
}

// ListSessions returns the most recent sessions first, optionally bounded
// below by from.
func (s *Service) ListSessions(ctx context.Context, limit int, from *time.Time) ([]sessions.Session, error) {
	items, err := s.store.ListRecentSessions(ctx, s.gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if from == nil {
		return items, nil
	}
	out := make([]sessions.Session, 0, len(items))
	for _, item := range items {
		if !item.PlayedAt.Before(*from) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *Service) RecordSession(ctx context.Context, v sessions.Session) (sessions.Session, error) {
	if err := validateSession(v); err != nil {
		return sessions.Session{}, err
	}

	now := s.now().UTC()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.GameID = s.gameID
	if v.PlayedAt.IsZero() {
		v.PlayedAt = now
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	v.DeletedAt = nil
	v.Participants = append([]sessions.Participant(nil), v.Participants...)
	for i := range v.Participants {
		// profiles come from the profile store on read, never from the request
		v.Participants[i].Profile = nil
	}

	if err := s.store.CreateSession(ctx, v); err != nil {
		if errors.Is(err, decks.ErrNotFound) {
			return sessions.Session{}, fmt.Errorf("%w: unknown deck: %v", ErrInvalidSession, err)
		}
		return sessions.Session{}, fmt.Errorf("create session: %w", err)
	}
	if err := s.bus.Publish(ctx, events.Event{Name: events.SessionRecorded, Payload: v}); err != nil {
		s.logger.Error("publish session recorded", zap.String("session_id", v.ID.String()), zap.Error(err))
	}
	return v, nil
}

func validateSession(v sessions.Session) error {
	if len(v.Participants) == 0 {
		return fmt.Errorf("%w: at least one participant is required", ErrInvalidSession)
	}
	if v.GameType != nil && !v.GameType.Valid() {
		return fmt.Errorf("%w: unknown game type %q", ErrInvalidSession, *v.GameType)
	}
	seen := make(map[uuid.UUID]struct{}, len(v.Participants))
	for i, p := range v.Participants {
		if p.Score < 0 {
			return fmt.Errorf("%w: participant %d has a negative score", ErrInvalidSession, i)
		}
		if p.UserID == nil {
			continue
		}
		if _, dup := seen[*p.UserID]; dup {
			return fmt.Errorf("%w: user %s appears twice", ErrInvalidSession, *p.UserID)
		}
		seen[*p.UserID] = struct{}{}
	}
	return nil
}

func (s *Service) invalidateLeaderboards(ctx context.Context, _ events.Event) error {
	return s.cache.DeletePrefix(ctx, leaderboardPrefix(s.gameID))
}
