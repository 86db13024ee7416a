package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS lp_journal (
	id                 UUID PRIMARY KEY,
	ts                 TIMESTAMPTZ NOT NULL,
	action             TEXT NOT NULL,
	pool               TEXT NOT NULL,
	position_mint      TEXT NOT NULL,
	signature          TEXT,
	status             TEXT NOT NULL,
	steps              TEXT[],
	program_error_code BIGINT,
	error              TEXT
)`

// PostgresJournal stores entries in the lp_journal table.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresJournal, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create journal table: %w", err)
	}
	return &PostgresJournal{pool: pool}, nil
}

func (j *PostgresJournal) Record(ctx context.Context, e Entry) error {
	var code *int64
	if e.ProgramErrorCode != nil {
		c := int64(*e.ProgramErrorCode)
		code = &c
	}
	_, err := j.pool.Exec(ctx, `
		INSERT INTO lp_journal (
			id, ts, action, pool, position_mint, signature, status, steps, program_error_code, error
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, NULLIF($10, ''))
	`,
		e.ID,
		e.Time,
		e.Action,
		e.Pool,
		e.PositionMint,
		e.Signature,
		string(e.Status),
		e.Steps,
		code,
		e.Error,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.pool.Query(ctx, `
		SELECT id::text, ts, action, pool, position_mint, COALESCE(signature, ''), status,
			COALESCE(steps, '{}'), program_error_code, COALESCE(error, '')
		FROM lp_journal
		ORDER BY ts DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e      Entry
			status string
			code   *int64
		)
		if err := row.Scan(&e.ID, &e.Time, &e.Action, &e.Pool, &e.PositionMint, &e.Signature, &status, &e.Steps, &code, &e.Error); err != nil {
			return Entry{}, err
		}
		e.Status = Status(status)
		if code != nil {
			c := uint32(*code)
			e.ProgramErrorCode = &c
		}
		return e, nil
	})
}

func (j *PostgresJournal) Close() error {
	if j.pool != nil {
		j.pool.Close()
	}
	return nil
}
