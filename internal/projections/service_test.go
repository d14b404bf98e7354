package projections

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/tabletop-api/internal/cache"
	"github.com/lutefd/tabletop-api/internal/domain/decks"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
	"github.com/lutefd/tabletop-api/internal/domain/stats"
	"github.com/lutefd/tabletop-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type projectionStoreMock struct {
	sessions  []sessions.Session
	decks     map[uuid.UUID]decks.Deck
	listCalls int
	created   []sessions.Session
	tagged    map[uuid.UUID][]string
	createErr error
}

func (m *projectionStoreMock) ListSessionsByGame(_ context.Context, _ uuid.UUID) ([]sessions.Session, error) {
	m.listCalls++
	return m.sessions, nil
}

func (m *projectionStoreMock) ListRecentSessions(_ context.Context, _ uuid.UUID, limit int) ([]sessions.Session, error) {
	if limit > 0 && len(m.sessions) > limit {
		return m.sessions[:limit], nil
	}
	return m.sessions, nil
}

func (m *projectionStoreMock) CreateSession(_ context.Context, v sessions.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, v)
	m.sessions = append(m.sessions, v)
	return nil
}

func (m *projectionStoreMock) SaveDeck(_ context.Context, d decks.Deck) error {
	if m.decks == nil {
		m.decks = make(map[uuid.UUID]decks.Deck)
	}
	m.decks[d.ID] = d
	return nil
}

func (m *projectionStoreMock) GetDeck(_ context.Context, id uuid.UUID) (decks.Deck, error) {
	d, ok := m.decks[id]
	if !ok {
		return decks.Deck{}, decks.ErrNotFound
	}
	return d, nil
}

func (m *projectionStoreMock) UpdateDeckTags(_ context.Context, id uuid.UUID, tags []string, _ time.Time) error {
	if _, ok := m.decks[id]; !ok {
		return decks.ErrNotFound
	}
	if m.tagged == nil {
		m.tagged = make(map[uuid.UUID][]string)
	}
	m.tagged[id] = tags
	return nil
}

type resolverMock struct {
	cards map[int]decks.CardMetadata
	err   error
}

func (r resolverMock) Resolve(_ context.Context, ids []int) (map[int]decks.CardMetadata, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[int]decks.CardMetadata, len(ids))
	for _, id := range ids {
		if c, ok := r.cards[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

var fixedNow = time.Date(2026, 3, 15, 20, 0, 0, 0, time.UTC)

func newTestService(store *projectionStoreMock, c Cache) *Service {
	return NewService(store, resolverMock{}, Options{
		GameID:   uuid.New(),
		CacheTTL: time.Minute,
		Cache:    c,
		Now:      func() time.Time { return fixedNow },
	})
}

func seat(id uuid.UUID, score float64, won bool) sessions.Participant {
	return sessions.Participant{UserID: &id, Score: score, IsWinner: won}
}

func TestLeaderboardResolvesPeriodAndFiltersTypes(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	league := sessions.GameTypeLeague
	casual := sessions.GameTypeCasual
	store := &projectionStoreMock{sessions: []sessions.Session{
		{ID: uuid.New(), PlayedAt: fixedNow.AddDate(0, -2, 0), GameType: &league, Participants: []sessions.Participant{seat(alice, 3, true)}},
		{ID: uuid.New(), PlayedAt: fixedNow.AddDate(0, 0, -3), GameType: &league, Participants: []sessions.Participant{seat(bob, 2, true)}},
		{ID: uuid.New(), PlayedAt: fixedNow.AddDate(0, 0, -1), GameType: &casual, Participants: []sessions.Participant{seat(alice, 4, true)}},
	}}
	svc := newTestService(store, nil)

	all, err := svc.Leaderboard(context.Background(), LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, alice, all[0].UserID)
	assert.InDelta(t, 7, all[0].TotalVP, 1e-9)

	month, err := svc.Leaderboard(context.Background(), LeaderboardQuery{
		Period:    stats.PeriodMonth,
		GameTypes: []sessions.GameType{sessions.GameTypeLeague},
	})
	require.NoError(t, err)
	require.Len(t, month, 1)
	assert.Equal(t, bob, month[0].UserID)
}

func TestLeaderboardRejectsUnknownPeriod(t *testing.T) {
	svc := newTestService(&projectionStoreMock{}, nil)
	_, err := svc.Leaderboard(context.Background(), LeaderboardQuery{Period: "decade"})
	assert.ErrorIs(t, err, stats.ErrUnknownPeriod)
}

func TestLeaderboardCacheIsInvalidatedBySessionRecorded(t *testing.T) {
	alice := uuid.New()
	store := &projectionStoreMock{sessions: []sessions.Session{
		{ID: uuid.New(), PlayedAt: fixedNow.Add(-time.Hour), Participants: []sessions.Participant{seat(alice, 2, false)}},
	}}
	svc := newTestService(store, cache.NewMemory())
	ctx := context.Background()

	first, err := svc.Leaderboard(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	_, err = svc.Leaderboard(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	if store.listCalls != 1 {
		t.Fatalf("expected second read to hit the cache, store listed %d times", store.listCalls)
	}
	assert.InDelta(t, 2, first[0].TotalVP, 1e-9)

	_, err = svc.RecordSession(ctx, sessions.Session{Participants: []sessions.Participant{seat(alice, 3, true)}})
	require.NoError(t, err)

	after, err := svc.Leaderboard(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	if store.listCalls != 2 {
		t.Fatalf("expected cache miss after a new session, store listed %d times", store.listCalls)
	}
	assert.InDelta(t, 5, after[0].TotalVP, 1e-9)
	assert.Equal(t, 1, after[0].GamesWon)
}

func TestRecordSessionValidates(t *testing.T) {
	alice := uuid.New()
	unknown := sessions.GameType("ranked")
	cases := []struct {
		name string
		in   sessions.Session
	}{
		{name: "no participants", in: sessions.Session{}},
		{name: "duplicate user", in: sessions.Session{Participants: []sessions.Participant{seat(alice, 1, false), seat(alice, 2, true)}}},
		{name: "negative score", in: sessions.Session{Participants: []sessions.Participant{seat(alice, -1, false)}}},
		{name: "unknown game type", in: sessions.Session{GameType: &unknown, Participants: []sessions.Participant{seat(alice, 1, false)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &projectionStoreMock{}
			_, err := newTestService(store, nil).RecordSession(context.Background(), tc.in)
			assert.ErrorIs(t, err, ErrInvalidSession)
			assert.Empty(t, store.created)
		})
	}
}

func TestRecordSessionFillsDefaultsAndPublishes(t *testing.T) {
	store := &projectionStoreMock{}
	bus := events.NewBus()
	var published []events.Event
	bus.Subscribe(events.SessionRecorded, func(_ context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})
	gameID := uuid.New()
	svc := NewService(store, resolverMock{}, Options{GameID: gameID, Bus: bus, Now: func() time.Time { return fixedNow }})

	name := "Ghoul"
	got, err := svc.RecordSession(context.Background(), sessions.Session{
		Participants: []sessions.Participant{{GuestName: &name, Score: 1}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, gameID, got.GameID)
	assert.Equal(t, fixedNow, got.PlayedAt)
	require.Len(t, store.created, 1)
	require.Len(t, published, 1)
	assert.Equal(t, got.ID, published[0].Payload.(sessions.Session).ID)
}

func TestRecordSessionWrapsStoreErrors(t *testing.T) {
	storeErr := errors.New("connection reset")
	store := &projectionStoreMock{createErr: storeErr}
	_, err := newTestService(store, nil).RecordSession(context.Background(), sessions.Session{
		Participants: []sessions.Participant{seat(uuid.New(), 1, true)},
	})
	assert.ErrorIs(t, err, storeErr)
}

func TestPlayerAndDeckStatsNotFound(t *testing.T) {
	svc := newTestService(&projectionStoreMock{}, nil)
	_, err := svc.PlayerStats(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.DeckStats(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlayerStatsReturnsFold(t *testing.T) {
	alice := uuid.New()
	store := &projectionStoreMock{sessions: []sessions.Session{
		{ID: uuid.New(), PlayedAt: fixedNow, Participants: []sessions.Participant{seat(alice, 2, true)}},
		{ID: uuid.New(), PlayedAt: fixedNow, Participants: []sessions.Participant{seat(alice, 1, false)}},
	}}
	got, err := newTestService(store, nil).PlayerStats(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, 2, got.GamesPlayed)
	assert.InDelta(t, 50, got.WinRate, 1e-9)
}

func TestListSessionsAppliesLowerBound(t *testing.T) {
	alice := uuid.New()
	store := &projectionStoreMock{sessions: []sessions.Session{
		{ID: uuid.New(), PlayedAt: fixedNow, Participants: []sessions.Participant{seat(alice, 1, false)}},
		{ID: uuid.New(), PlayedAt: fixedNow.AddDate(0, 0, -10), Participants: []sessions.Participant{seat(alice, 1, false)}},
	}}
	from := fixedNow.AddDate(0, 0, -1)
	got, err := newTestService(store, nil).ListSessions(context.Background(), 10, &from)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, store.sessions[0].ID, got[0].ID)
}

func TestRecordSessionDropsRequestProfiles(t *testing.T) {
	store := &projectionStoreMock{}
	alice := uuid.New()
	spoofed := "Someone Else"
	in := sessions.Session{Participants: []sessions.Participant{
		{UserID: &alice, Score: 2, Profile: &sessions.Profile{DisplayName: &spoofed}},
	}}

	got, err := newTestService(store, nil).RecordSession(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, got.Participants[0].Profile)
	assert.Nil(t, store.created[0].Participants[0].Profile)
	assert.NotNil(t, in.Participants[0].Profile, "caller's session must not be mutated")
}

func TestRecordSessionWithUnknownDeckIsInvalid(t *testing.T) {
	store := &projectionStoreMock{createErr: fmt.Errorf("insert player seat 0: %w", decks.ErrNotFound)}
	deckID := uuid.New()
	p := seat(uuid.New(), 1, true)
	p.DeckID = &deckID

	_, err := newTestService(store, nil).RecordSession(context.Background(), sessions.Session{Participants: []sessions.Participant{p}})
	assert.ErrorIs(t, err, ErrInvalidSession)
}
