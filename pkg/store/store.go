// Package store persists player progress in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dverhoef/treasurehunt/pkg/store/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// FinishedTag marks a player whose hunt is complete.
const FinishedTag = "FINISHED"

var (
	// ErrNotFound is returned when no player matches the given id.
	ErrNotFound = errors.New("player not found")
	// ErrNameTaken is returned when a player name is already registered.
	ErrNameTaken = errors.New("player name already taken")
)

// Player is one row of the players table. Zero time values map to NULL.
type Player struct {
	ID         string
	Name       string
	CurrentTag string
	LastScan   time.Time
	Start      time.Time
	End        time.Time
}

// Finished reports whether the player has completed the hunt.
func (p Player) Finished() bool {
	return !p.End.IsZero()
}

// Started reports whether the player has scanned the initial tag.
func (p Player) Started() bool {
	return !p.Start.IsZero()
}

// Duration is the player's completion time. Only meaningful once finished.
func (p Player) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Entry is one leaderboard row.
type Entry struct {
	Name     string
	Duration time.Duration
}

// Store persists players in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the SQLite player store at path and applies embedded
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreatePlayer registers a new player. Names must be unique.
func (s *Store) CreatePlayer(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("player id is required")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("player name is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO players (player_id, player_name) VALUES (?, ?)`, id, name)
	if isUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// GetPlayer loads one player by id.
func (s *Store) GetPlayer(ctx context.Context, id string) (Player, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT player_id, player_name, current_clue_tag, last_scan_time, start_time, end_time
FROM players WHERE player_id = ?`, id)
	return scanPlayer(row)
}

// NameExists reports whether any player, active or finished, holds name.
func (s *Store) NameExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM players WHERE player_name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query player name: %w", err)
	}
	return true, nil
}

// StartHunt records the first correct scan: the timer starts here.
func (s *Store) StartHunt(ctx context.Context, id, tag string) error {
	now := s.now().UTC().UnixMilli()
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE players SET current_clue_tag = ?, start_time = ?, last_scan_time = ?
WHERE player_id = ? AND start_time IS NULL`, tag, now, now, id)
	if err != nil {
		return fmt.Errorf("start hunt: %w", err)
	}
	return requireOneRow(res)
}

// Advance moves a player's progress to the next expected tag.
func (s *Store) Advance(ctx context.Context, id, nextTag string) error {
	now := s.now().UTC().UnixMilli()
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE players SET current_clue_tag = ?, last_scan_time = ?
WHERE player_id = ?`, nextTag, now, id)
	if err != nil {
		return fmt.Errorf("advance player: %w", err)
	}
	return requireOneRow(res)
}

// Finish records the final scan and stops the timer.
func (s *Store) Finish(ctx context.Context, id string) error {
	now := s.now().UTC().UnixMilli()
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE players SET current_clue_tag = ?, end_time = ?, last_scan_time = ?
WHERE player_id = ? AND end_time IS NULL`, FinishedTag, now, now, id)
	if err != nil {
		return fmt.Errorf("finish player: %w", err)
	}
	return requireOneRow(res)
}

// Leaderboard returns the fastest finishers, quickest first.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT player_name, end_time - start_time AS duration_ms
FROM players
WHERE end_time IS NOT NULL
ORDER BY duration_ms ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var name string
		var durationMs int64
		if err := rows.Scan(&name, &durationMs); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		entries = append(entries, Entry{
			Name:     name,
			Duration: time.Duration(durationMs) * time.Millisecond,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}
	return entries, nil
}

// Rank returns the placement of a finisher with the given completion
// time: one plus the number of strictly faster finishers.
func (s *Store) Rank(ctx context.Context, d time.Duration) (int, error) {
	var faster int
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT COUNT(player_id) FROM players
WHERE end_time IS NOT NULL AND end_time - start_time < ?`,
		d.Milliseconds()).Scan(&faster)
	if err != nil {
		return 0, fmt.Errorf("query rank: %w", err)
	}
	return faster + 1, nil
}

// Reset removes all player rows. Used by the maintenance CLI.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM players`); err != nil {
		return fmt.Errorf("reset players: %w", err)
	}
	return nil
}

func scanPlayer(row *sql.Row) (Player, error) {
	var p Player
	var tag sql.NullString
	var lastScan, start, end sql.NullInt64
	err := row.Scan(&p.ID, &p.Name, &tag, &lastScan, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("scan player: %w", err)
	}
	p.CurrentTag = tag.String
	p.LastScan = fromMillis(lastScan)
	p.Start = fromMillis(start)
	p.End = fromMillis(end)
	return p, nil
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// applyMigrations executes embedded .sql files in name order, each at
// most once, tracked in a schema_migrations table.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	if _, err := sqlDB.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var one int
		err := sqlDB.QueryRow(
			`SELECT 1 FROM schema_migrations WHERE name = ?`, name).Scan(&one)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", name, err)
		}

		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
			name, time.Now().UTC().UnixMilli()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}
