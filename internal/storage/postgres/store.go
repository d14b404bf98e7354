package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lutefd/tabletop-api/internal/domain/decks"
	"github.com/lutefd/tabletop-api/internal/domain/sessions"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) EnsureGame(ctx context.Context, id uuid.UUID, name string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO games (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, id, name)
	return err
}

func (s *Store) CreateSession(ctx context.Context, v sessions.Session) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO sessions (id, game_id, played_at, game_type, notes, created_at, updated_at, deleted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, v.ID, v.GameID, v.PlayedAt, gameTypeValue(v.GameType), v.Notes, v.CreatedAt, v.UpdatedAt, v.DeletedAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for seat, p := range v.Participants {
		if p.UserID == nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO session_guests (id, session_id, seat, guest_name, score, is_winner, deck_id, deck_name)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`, uuid.New(), v.ID, seat, guestName(p), p.Score, p.IsWinner, p.DeckID, p.DeckName); err != nil {
				return fmt.Errorf("insert guest seat %d: %w", seat, mapForeignKey(err))
			}
			continue
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO profiles (id)
			VALUES ($1)
			ON CONFLICT (id) DO NOTHING
		`, *p.UserID); err != nil {
			return fmt.Errorf("ensure profile: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO session_players (session_id, user_id, seat, score, is_winner, deck_id, deck_name)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, v.ID, *p.UserID, seat, p.Score, p.IsWinner, p.DeckID, p.DeckName); err != nil {
			return fmt.Errorf("insert player seat %d: %w", seat, mapForeignKey(err))
		}
	}
	return tx.Commit(ctx)
}

// ListSessionsByGame returns the full, non-deleted history of a game in
// play order.
func (s *Store) ListSessionsByGame(ctx context.Context, gameID uuid.UUID) ([]sessions.Session, error) {
	rows, err := s.querySessions(ctx, `
		SELECT id, game_id, played_at, game_type, notes, created_at, updated_at, deleted_at
		FROM sessions
		WHERE game_id = $1 AND deleted_at IS NULL
		ORDER BY played_at ASC, id ASC
	`, gameID)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, rows)
}

func (s *Store) ListRecentSessions(ctx context.Context, gameID uuid.UUID, limit int) ([]sessions.Session, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.querySessions(ctx, `
		SELECT id, game_id, played_at, game_type, notes, created_at, updated_at, deleted_at
		FROM sessions
		WHERE game_id = $1 AND deleted_at IS NULL
		ORDER BY played_at DESC, id DESC
		LIMIT $2
	`, gameID, limit)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, rows)
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]sessionRow, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]sessionRow, 0)
	for rows.Next() {
		var v sessionRow
		if err := rows.Scan(&v.ID, &v.GameID, &v.PlayedAt, &v.GameType, &v.Notes, &v.CreatedAt, &v.UpdatedAt, &v.DeletedAt); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (s *Store) assemble(ctx context.Context, rows []sessionRow) ([]sessions.Session, error) {
	if len(rows) == 0 {
		return []sessions.Session{}, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	playerRows, err := s.pool.Query(ctx, `
		SELECT sp.session_id, sp.seat, sp.user_id, sp.score, sp.is_winner, sp.deck_id, sp.deck_name,
		       p.display_name, p.username
		FROM session_players sp
		LEFT JOIN profiles p ON p.id = sp.user_id
		WHERE sp.session_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer playerRows.Close()

	players := make([]playerRow, 0)
	for playerRows.Next() {
		var v playerRow
		if err := playerRows.Scan(&v.SessionID, &v.Seat, &v.UserID, &v.Score, &v.IsWinner, &v.DeckID, &v.DeckName, &v.DisplayName, &v.Username); err != nil {
			return nil, err
		}
		players = append(players, v)
	}
	if err := playerRows.Err(); err != nil {
		return nil, err
	}

	guestRows, err := s.pool.Query(ctx, `
		SELECT session_id, seat, guest_name, score, is_winner, deck_id, deck_name
		FROM session_guests
		WHERE session_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer guestRows.Close()

	guests := make([]guestRow, 0)
	for guestRows.Next() {
		var v guestRow
		if err := guestRows.Scan(&v.SessionID, &v.Seat, &v.GuestName, &v.Score, &v.IsWinner, &v.DeckID, &v.DeckName); err != nil {
			return nil, err
		}
		guests = append(guests, v)
	}
	if err := guestRows.Err(); err != nil {
		return nil, err
	}

	return normalizeSessions(rows, players, guests), nil
}

func (s *Store) SaveDeck(ctx context.Context, d decks.Deck) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if d.OwnerID != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO profiles (id)
			VALUES ($1)
			ON CONFLICT (id) DO NOTHING
		`, *d.OwnerID); err != nil {
			return fmt.Errorf("ensure owner: %w", err)
		}
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO decks (id, owner_id, name, tags, created_at, updated_at, deleted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id)
		DO UPDATE SET
			owner_id = COALESCE(decks.owner_id, EXCLUDED.owner_id),
			name = EXCLUDED.name,
			tags = EXCLUDED.tags,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`, d.ID, d.OwnerID, d.Name, tags, d.CreatedAt, d.UpdatedAt, d.DeletedAt); err != nil {
		return fmt.Errorf("upsert deck: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM deck_cards WHERE deck_id = $1`, d.ID); err != nil {
		return err
	}
	for _, c := range d.Cards {
		if _, err := tx.Exec(ctx, `
			INSERT INTO deck_cards (deck_id, card_id, quantity)
			VALUES ($1,$2,$3)
			ON CONFLICT (deck_id, card_id) DO UPDATE SET quantity = deck_cards.quantity + EXCLUDED.quantity
		`, d.ID, c.CardID, c.Quantity); err != nil {
			return fmt.Errorf("insert card %d: %w", c.CardID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetDeck(ctx context.Context, id uuid.UUID) (decks.Deck, error) {
	var d decks.Deck
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, tags, created_at, updated_at, deleted_at
		FROM decks
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&d.ID, &d.OwnerID, &d.Name, &d.Tags, &d.CreatedAt, &d.UpdatedAt, &d.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decks.Deck{}, decks.ErrNotFound
		}
		return decks.Deck{}, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT card_id, quantity
		FROM deck_cards
		WHERE deck_id = $1
		ORDER BY card_id ASC
	`, id)
	if err != nil {
		return decks.Deck{}, err
	}
	defer rows.Close()

	d.Cards = make([]decks.DeckCard, 0)
	for rows.Next() {
		var c decks.DeckCard
		if err := rows.Scan(&c.CardID, &c.Quantity); err != nil {
			return decks.Deck{}, err
		}
		d.Cards = append(d.Cards, c)
	}
	return d, rows.Err()
}

func (s *Store) UpdateDeckTags(ctx context.Context, id uuid.UUID, tags []string, updatedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE decks SET tags = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`, id, tags, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return decks.ErrNotFound
	}
	return nil
}

const foreignKeyViolation = "23503"

// mapForeignKey turns a seat referencing a deck that is not stored into
// decks.ErrNotFound. Seat deck ids are the only foreign key a caller controls.
func mapForeignKey(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, decks.ErrNotFound)
	}
	return err
}

func guestName(p sessions.Participant) string {
	if p.GuestName == nil || *p.GuestName == "" {
		return "Guest"
	}
	return *p.GuestName
}
