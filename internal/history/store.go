// Package history keeps a SQLite record of every generated collectible and
// the traits it was built from, for rarity bookkeeping.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/setanarut/nftgen"
)

var ErrNotFound = errors.New("generation not found")

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	seed       INTEGER NOT NULL,
	traits     TEXT NOT NULL,
	palette    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS generation_traits (
	generation_id TEXT NOT NULL REFERENCES generations(id) ON DELETE CASCADE,
	grp           TEXT NOT NULL,
	trait         TEXT NOT NULL,
	PRIMARY KEY (generation_id, grp)
);
CREATE INDEX IF NOT EXISTS idx_generation_traits_trait ON generation_traits(grp, trait);
`

var pragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Record is one stored generation.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// Source names what asked for the generation ("chat", "http", "cli").
	Source  string         `json:"source"`
	Seed    int64          `json:"seed"`
	Traits  []nftgen.Trait `json:"traits"`
	Palette []string       `json:"palette,omitempty"`
}

// TraitCount is how often a trait has been generated.
type TraitCount struct {
	Group string `json:"group"`
	Trait string `json:"trait"`
	Count int    `json:"count"`
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Add stores rec and returns its ID. Empty ID and CreatedAt are filled in.
func (s *Store) Add(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	traits, err := json.Marshal(rec.Traits)
	if err != nil {
		return "", fmt.Errorf("history: encode traits: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO generations (id, created_at, source, seed, traits, palette) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.UTC().Format(timeLayout), rec.Source, rec.Seed, string(traits),
		strings.Join(rec.Palette, ","))
	if err != nil {
		return "", fmt.Errorf("history: insert generation: %w", err)
	}
	for _, t := range rec.Traits {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO generation_traits (generation_id, grp, trait) VALUES (?, ?, ?)`,
			rec.ID, t.Group, t.Name)
		if err != nil {
			return "", fmt.Errorf("history: insert trait %s/%s: %w", t.Group, t.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("history: commit: %w", err)
	}
	return rec.ID, nil
}

// Get returns the generation with the given ID or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, source, seed, traits, palette FROM generations WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Recent returns up to limit generations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source, seed, traits, palette FROM generations
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored generations.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM generations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

// TraitCounts tallies generated traits, grouped by group name and ordered
// from most to least frequent within each group.
func (s *Store) TraitCounts(ctx context.Context) ([]TraitCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT grp, trait, COUNT(*) AS n FROM generation_traits
		 GROUP BY grp, trait ORDER BY grp, n DESC, trait`)
	if err != nil {
		return nil, fmt.Errorf("history: query trait counts: %w", err)
	}
	defer rows.Close()

	var out []TraitCount
	for rows.Next() {
		var tc TraitCount
		if err := rows.Scan(&tc.Group, &tc.Trait, &tc.Count); err != nil {
			return nil, fmt.Errorf("history: scan trait count: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var created, traits, palette string
	if err := row.Scan(&rec.ID, &created, &rec.Source, &rec.Seed, &traits, &palette); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("history: parse created_at %q: %w", created, err)
	}
	rec.CreatedAt = t
	if err := json.Unmarshal([]byte(traits), &rec.Traits); err != nil {
		return nil, fmt.Errorf("history: decode traits: %w", err)
	}
	if palette != "" {
		rec.Palette = strings.Split(palette, ",")
	}
	return &rec, nil
}
