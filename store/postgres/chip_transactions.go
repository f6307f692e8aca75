package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/okeyrelay/core/pkg/okerr"
	"github.com/okeyrelay/core/store"
)

type chipTxRepo struct{ db dbtx }

const chipTxColumns = `id, user_id, game_history_id, amount, balance_before, balance_after, description, type, idempotency_key, reference_number, created_at`

func (r *chipTxRepo) GetByID(ctx context.Context, id int64) (*store.ChipTransaction, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+chipTxColumns+`
		FROM chip_transactions WHERE id = $1
	`, id)
	return scanChipTx(row)
}

func (r *chipTxRepo) GetByReferenceNumber(ctx context.Context, ref string) (*store.ChipTransaction, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+chipTxColumns+`
		FROM chip_transactions WHERE reference_number = $1
	`, ref)
	return scanChipTx(row)
}

func (r *chipTxRepo) GetByIdempotencyKey(ctx context.Context, key string) (*store.ChipTransaction, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+chipTxColumns+`
		FROM chip_transactions WHERE idempotency_key = $1
	`, key)
	tx, err := scanChipTx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // absent, not an error: callers treat this as "not yet applied"
	}
	return tx, err
}

func (r *chipTxRepo) GetByGameHistoryID(ctx context.Context, gameHistoryID string) ([]*store.ChipTransaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+chipTxColumns+`
		FROM chip_transactions WHERE game_history_id = $1
	`, gameHistoryID)
	if err != nil {
		return nil, fmt.Errorf("chip transactions for game %s: %w", gameHistoryID, err)
	}
	defer rows.Close()

	var out []*store.ChipTransaction
	for rows.Next() {
		t, err := scanChipTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *chipTxRepo) Add(ctx context.Context, t *store.ChipTransaction) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO chip_transactions (user_id, game_history_id, amount, balance_before, balance_after, description, type, idempotency_key, reference_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, t.UserID, t.GameHistoryID, t.Amount, t.BalanceBefore, t.BalanceAfter, t.Description, int(t.Type), t.IdempotencyKey, t.ReferenceNumber).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return okerr.New(okerr.DuplicateIdempotency, t.IdempotencyKey)
		}
		return fmt.Errorf("add chip transaction: %w", err)
	}
	return nil
}

func (r *chipTxRepo) AddRange(ctx context.Context, ts []*store.ChipTransaction) error {
	for _, t := range ts {
		if err := r.Add(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func scanChipTx(row pgx.Row) (*store.ChipTransaction, error) {
	t := &store.ChipTransaction{}
	var txType int
	if err := row.Scan(&t.ID, &t.UserID, &t.GameHistoryID, &t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.Description, &txType, &t.IdempotencyKey, &t.ReferenceNumber, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = store.TransactionType(txType)
	return t, nil
}
