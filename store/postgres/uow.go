package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/okeyrelay/core/store"
)

// unitOfWork wraps one open pgx.Tx: every repository it hands out
// reads and writes through the same transaction, so Commit is the
// single atomicity boundary spec.md §4.6 requires. Grounded on
// leanlp-BTC-coinjoin's SaveAnalysisResult (Begin, several tx.Exec
// calls, a single Commit, deferred Rollback on the caller's side).
type unitOfWork struct {
	tx pgx.Tx
}

func (u *unitOfWork) Users() store.Users                      { return &userRepo{db: u.tx} }
func (u *unitOfWork) GameHistories() store.GameHistories       { return &gameHistoryRepo{db: u.tx} }
func (u *unitOfWork) ChipTransactions() store.ChipTransactions { return &chipTxRepo{db: u.tx} }

func (u *unitOfWork) Commit(ctx context.Context) error {
	return u.tx.Commit(ctx)
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback(ctx)
	if err == pgx.ErrTxClosed {
		return nil // already committed; the settlement pipeline's deferred Rollback is a no-op then
	}
	return err
}
