package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aluiziolira/pricewatch/models"
	_ "modernc.org/sqlite"
)

// SQLite keeps the snapshot in a single table of an SQLite database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path and creates the
// snapshot table if needed. The caller must call Close.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one connection serialises writers and keeps in-file locking simple
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS snapshot_records (
    position INTEGER PRIMARY KEY,
    title    TEXT NOT NULL,
    price    TEXT,
    rating   TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create snapshot_records table: %w", err)
	}
	return nil
}

// Load returns the stored records in the order they were saved.
func (s *SQLite) Load(ctx context.Context) (models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, price, rating FROM snapshot_records ORDER BY position`)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: query snapshot: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	snapshot := models.Snapshot{}
	for rows.Next() {
		var rec models.ProductRecord
		if err := rows.Scan(&rec.Title, &rec.Price, &rec.Rating); err != nil {
			return models.Snapshot{}, fmt.Errorf("%w: scan record: %w", ErrCorrupt, err)
		}
		snapshot = append(snapshot, rec)
	}
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: iterate records: %w", ErrCorrupt, err)
	}
	return snapshot, nil
}

// Save replaces every stored record inside one transaction.
func (s *SQLite) Save(ctx context.Context, snapshot models.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrWrite, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_records`); err != nil {
		return fmt.Errorf("%w: clear snapshot: %w", ErrWrite, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_records (position, title, price, rating) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare insert: %w", ErrWrite, err)
	}
	defer stmt.Close()

	for i, rec := range snapshot {
		if _, err := stmt.ExecContext(ctx, i, rec.Title, rec.Price, rec.Rating); err != nil {
			return fmt.Errorf("%w: insert %q: %w", ErrWrite, rec.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx: %w", ErrWrite, err)
	}
	return nil
}

// Close shuts down the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
