package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/aluiziolira/pricewatch/models"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Postgres keeps the snapshot in a PostgreSQL table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres applies pending migrations and connects a pool to dsn.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if err := Migrate(ctx, dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate brings the schema at dsn up to date with the embedded migrations.
func Migrate(ctx context.Context, dsn string) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migrations connection: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migrations database: %w", err)
	}

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return fmt.Errorf("initialise pgx v5 driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("initialise migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Load returns the stored records in the order they were saved.
func (s *Postgres) Load(ctx context.Context) (models.Snapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title, price, rating FROM snapshot_records ORDER BY position`)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: query snapshot: %w", ErrCorrupt, err)
	}
	defer rows.Close()

	snapshot := models.Snapshot{}
	for rows.Next() {
		var (
			rec   models.ProductRecord
			price pgtype.Numeric
		)
		if err := rows.Scan(&rec.Title, &price, &rec.Rating); err != nil {
			return models.Snapshot{}, fmt.Errorf("%w: scan record: %w", ErrCorrupt, err)
		}
		rec.Price, err = priceFromNumeric(price)
		if err != nil {
			return models.Snapshot{}, fmt.Errorf("%w: price for %q: %w", ErrCorrupt, rec.Title, err)
		}
		snapshot = append(snapshot, rec)
	}
	if err := rows.Err(); err != nil {
		return models.Snapshot{}, fmt.Errorf("%w: iterate records: %w", ErrCorrupt, err)
	}
	return snapshot, nil
}

// Save replaces every stored record inside one transaction.
func (s *Postgres) Save(ctx context.Context, snapshot models.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrWrite, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM snapshot_records`); err != nil {
		return fmt.Errorf("%w: clear snapshot: %w", ErrWrite, err)
	}

	batch := &pgx.Batch{}
	for i, rec := range snapshot {
		price, err := numericFromPrice(rec.Price)
		if err != nil {
			return fmt.Errorf("%w: price for %q: %w", ErrWrite, rec.Title, err)
		}
		batch.Queue(
			`INSERT INTO snapshot_records (position, title, price, rating) VALUES ($1, $2, $3, $4)`,
			i, rec.Title, price, rec.Rating,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("%w: insert records: %w", ErrWrite, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit tx: %w", ErrWrite, err)
	}
	return nil
}

// Close releases the pool.
func (s *Postgres) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func numericFromPrice(p models.Price) (pgtype.Numeric, error) {
	var out pgtype.Numeric
	if !p.Valid {
		return out, nil
	}
	if err := out.Scan(p.Amount.String()); err != nil {
		return out, fmt.Errorf("parse numeric %q: %w", p.Amount.String(), err)
	}
	return out, nil
}

func priceFromNumeric(n pgtype.Numeric) (models.Price, error) {
	if !n.Valid {
		return models.NoPrice(), nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return models.NoPrice(), fmt.Errorf("non-finite numeric")
	}
	return models.NewPrice(decimal.NewFromBigInt(n.Int, n.Exp)), nil
}
