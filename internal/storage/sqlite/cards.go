// Package sqlite keeps a local cache of card metadata fetched from the
// external card database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lutefd/tabletop-api/internal/domain/decks"

	_ "modernc.org/sqlite" // SQLite driver.
)

// CardCache stores card metadata as JSON keyed by card id.
type CardCache struct {
	db *sql.DB
}

// OpenCardCache opens or creates the cache database at path.
func OpenCardCache(path string) (*CardCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)
	c := &CardCache{db: db}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *CardCache) Close() error {
	return c.db.Close()
}

func (c *CardCache) migrate() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS card_metadata (
		id INTEGER PRIMARY KEY,
		payload TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	);`)
	return err
}

// Cards returns the cached entries for ids. Missing ids are absent from the map.
func (c *CardCache) Cards(ctx context.Context, ids []int) (map[int]decks.CardMetadata, error) {
	out := make(map[int]decks.CardMetadata, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT id, payload FROM card_metadata WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var card decks.CardMetadata
		if err := json.Unmarshal([]byte(payload), &card); err != nil {
			return nil, fmt.Errorf("decode cached card %d: %w", id, err)
		}
		out[id] = card
	}
	return out, rows.Err()
}

func (c *CardCache) Put(ctx context.Context, cards []decks.CardMetadata) error {
	if len(cards) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, card := range cards {
		payload, err := json.Marshal(card)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO card_metadata (id, payload, fetched_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
		`, card.ID, string(payload), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
