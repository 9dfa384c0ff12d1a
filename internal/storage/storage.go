// Package storage provides SQLite-backed persistence for the append-only
// market snapshot history.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/marketpress/marketpress/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database holding the snapshot time series.
type Storage struct {
	db        *sql.DB
	retention time.Duration
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/marketpress/data.db.
func New(dbPath string, retention time.Duration) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "marketpress", "data.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, retention: retention}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id            TEXT PRIMARY KEY,
			ticker        TEXT NOT NULL,
			snapshot_time INTEGER NOT NULL,
			yes_price     REAL,
			no_price      REAL,
			last_price    REAL,
			volume        INTEGER NOT NULL DEFAULT 0,
			open_interest INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_ticker_time ON snapshots(ticker, snapshot_time)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_time ON snapshots(snapshot_time)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// AddSnapshots appends one fetch cycle's snapshots in a single transaction.
// Rows without an ID are assigned one. Snapshots are never updated.
func (s *Storage) AddSnapshots(snapshots []models.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO snapshots
			(id, ticker, snapshot_time, yes_price, no_price, last_price, volume, open_interest)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snapshots {
		id := snap.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err := stmt.Exec(
			id, snap.Ticker, snap.SnapshotTime.UnixNano(),
			toNull(snap.YesPrice), toNull(snap.NoPrice), toNull(snap.LastPrice),
			snap.Volume, snap.OpenInterest,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot for %s: %w", snap.Ticker, err)
		}
	}

	return tx.Commit()
}

// SnapshotsSince returns all snapshots at or after t, ordered by time.
func (s *Storage) SnapshotsSince(t time.Time) ([]models.Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, ticker, snapshot_time, yes_price, no_price, last_price, volume, open_interest
		FROM snapshots WHERE snapshot_time >= ? ORDER BY snapshot_time`, t.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// TickerSnapshots returns one ticker's snapshots at or after since, ordered
// by time.
func (s *Storage) TickerSnapshots(ticker string, since time.Time) ([]models.Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, ticker, snapshot_time, yes_price, no_price, last_price, volume, open_interest
		FROM snapshots WHERE ticker = ? AND snapshot_time >= ? ORDER BY snapshot_time`,
		ticker, since.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to query ticker snapshots: %w", err)
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// Rotate deletes snapshots older than the retention window.
func (s *Storage) Rotate(now time.Time) error {
	cutoff := now.Add(-s.retention)
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE snapshot_time < ?`, cutoff.UnixNano()); err != nil {
		return fmt.Errorf("failed to rotate snapshots: %w", err)
	}
	return nil
}

func scanSnapshots(rows *sql.Rows) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		var at int64
		var yes, no, last sql.NullFloat64

		if err := rows.Scan(&snap.ID, &snap.Ticker, &at, &yes, &no, &last, &snap.Volume, &snap.OpenInterest); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.SnapshotTime = time.Unix(0, at)
		snap.YesPrice = fromNull(yes)
		snap.NoPrice = fromNull(no)
		snap.LastPrice = fromNull(last)
		snapshots = append(snapshots, snap)
	}
	if snapshots == nil {
		snapshots = []models.Snapshot{}
	}
	return snapshots, rows.Err()
}

// toNull maps the in-memory missing marker to SQL NULL.
func toNull(v float64) sql.NullFloat64 {
	if models.IsMissing(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return models.Missing()
	}
	return v.Float64
}
