// Package postgres implements the store.Store port against
// PostgreSQL via pgx, grounded on leanlp-BTC-coinjoin's
// internal/db/postgres.go connection-pool and explicit
// Begin/Exec/Commit usage.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okeyrelay/core/store"
)

// dbtx is the subset of pgxpool.Pool and pgx.Tx every repository needs,
// letting the same repo type run unmodified against a pooled
// connection or an open transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store is the PostgreSQL-backed store.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection and pings it, mirroring
// leanlp-BTC-coinjoin's Connect.
func Connect(ctx context.Context, connStr string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

// InitSchema creates the users/game_histories/chip_transactions tables
// if absent. The unique index on idempotency_key is what backs
// spec.md §4.6's "duplicate attempts short-circuit as success."
func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	balance BIGINT NOT NULL DEFAULT 0,
	elo INTEGER NOT NULL DEFAULT 1000,
	games_played INTEGER NOT NULL DEFAULT 0,
	wins INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS game_histories (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	player_ids TEXT[] NOT NULL,
	winner_id TEXT NOT NULL DEFAULT '',
	win_type INTEGER NOT NULL DEFAULT 0,
	table_stake BIGINT NOT NULL,
	status INTEGER NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_game_histories_room ON game_histories(room_id);

CREATE TABLE IF NOT EXISTS chip_transactions (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	game_history_id TEXT NOT NULL DEFAULT '',
	amount BIGINT NOT NULL,
	balance_before BIGINT NOT NULL DEFAULT 0,
	balance_after BIGINT NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	type INTEGER NOT NULL,
	idempotency_key TEXT NOT NULL UNIQUE,
	reference_number TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chip_tx_game_history ON chip_transactions(game_history_id);
`

func (s *Store) Users() store.Users                      { return &userRepo{db: s.pool} }
func (s *Store) GameHistories() store.GameHistories       { return &gameHistoryRepo{db: s.pool} }
func (s *Store) ChipTransactions() store.ChipTransactions { return &chipTxRepo{db: s.pool} }

func (s *Store) BeginTransaction(ctx context.Context) (store.UnitOfWork, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &unitOfWork{tx: tx}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
