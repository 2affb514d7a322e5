package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pricecompare/config"
	"pricecompare/models"
)

// PostgresWriter appends every freshly fetched table to a price history,
// so prices for a query can be compared across runs.
type PostgresWriter struct {
	pool *pgxpool.Pool
}

func DSN(cfg config.ArchiveConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBSSLMode,
	)
}

func NewPostgresWriter(ctx context.Context, cfg config.ArchiveConfig) (*PostgresWriter, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &PostgresWriter{pool: pool}, nil
}

func (w *PostgresWriter) Close() {
	if w.pool != nil {
		w.pool.Close()
	}
}

func (w *PostgresWriter) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	sql := `
	CREATE TABLE IF NOT EXISTS price_snapshots (
		id BIGSERIAL PRIMARY KEY,
		query TEXT NOT NULL,
		title TEXT NOT NULL,
		price NUMERIC(12,2) NOT NULL,
		url TEXT NOT NULL,
		img TEXT NOT NULL,
		condition TEXT NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_price_snapshots_query ON price_snapshots(query, fetched_at);
	CREATE INDEX IF NOT EXISTS idx_price_snapshots_price ON price_snapshots(price);
	`

	if _, err := w.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}

// Archive stores one snapshot row per listing of table under query.
func (w *PostgresWriter) Archive(ctx context.Context, query string, table models.Table) error {
	if table.Len() == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	fetchedAt := time.Now().UTC()
	batch := &pgx.Batch{}
	insertSQL := `
	INSERT INTO price_snapshots (query, title, price, url, img, condition, fetched_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
	`

	enqueued := 0
	for _, l := range table.Rows {
		title := strings.TrimSpace(l.Title)
		if title == "" {
			continue
		}
		batch.Queue(insertSQL, query, title, l.Price, l.URL, l.Image, l.Condition, fetchedAt)
		enqueued++
	}

	if enqueued == 0 {
		return nil
	}

	results := w.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < enqueued; i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert failed at row %d: %w", i, err)
		}
	}

	return nil
}
