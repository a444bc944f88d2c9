package journal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink persists entries in a PostgreSQL table.
type PostgresSink struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS nft_journal (
    id BIGSERIAL PRIMARY KEY,
    session_id TEXT NOT NULL,
    action TEXT NOT NULL,
    token_id TEXT,
    tx_hash TEXT,
    status TEXT NOT NULL,
    error TEXT,
    signature TEXT,
    recorded_at TIMESTAMPTZ NOT NULL
);
`

// NewPostgresSink connects to Postgres using the DSN and ensures the table exists.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresSink{pool: pool}, nil
}

func (p *PostgresSink) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresSink) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresSink) Append(ctx context.Context, entry Entry) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO nft_journal (session_id, action, token_id, tx_hash, status, error, signature, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, entry.SessionID, entry.Action, nullable(entry.TokenID), nullable(entry.TxHash),
		entry.Status, nullable(entry.Error), nullable(entry.Signature), entry.At)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
