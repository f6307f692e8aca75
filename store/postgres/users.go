package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/okeyrelay/core/store"
)

type userRepo struct{ db dbtx }

func (r *userRepo) GetByID(ctx context.Context, id string) (*store.User, error) {
	return r.scanOne(ctx, "SELECT id, username, display_name, balance, elo, games_played, wins FROM users WHERE id = $1", id)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*store.User, error) {
	return r.scanOne(ctx, "SELECT id, username, display_name, balance, elo, games_played, wins FROM users WHERE username = $1", username)
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, "SELECT id, username, display_name, balance, elo, games_played, wins FROM users WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	defer rows.Close()

	var out []*store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *userRepo) Add(ctx context.Context, u *store.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, username, display_name, balance, elo, games_played, wins)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Username, u.DisplayName, u.Balance, u.Elo, u.GamesPlayed, u.Wins)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

func (r *userRepo) Update(ctx context.Context, u *store.User) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET display_name = $2, balance = $3, elo = $4, games_played = $5, wins = $6
		WHERE id = $1
	`, u.ID, u.DisplayName, u.Balance, u.Elo, u.GamesPlayed, u.Wins)
	if err != nil {
		return fmt.Errorf("update user %s: %w", u.ID, err)
	}
	return nil
}

func (r *userRepo) TopByElo(ctx context.Context, n int) ([]*store.User, error) {
	rows, err := r.db.Query(ctx, "SELECT id, username, display_name, balance, elo, games_played, wins FROM users ORDER BY elo DESC LIMIT $1", n)
	if err != nil {
		return nil, fmt.Errorf("top by elo: %w", err)
	}
	defer rows.Close()

	var out []*store.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// EloRank returns userID's 1-based rank by descending ELO, or the
// not-found sentinel -1 if no such user exists (see DESIGN.md).
func (r *userRepo) EloRank(ctx context.Context, userID string) (int, error) {
	var elo int
	err := r.db.QueryRow(ctx, "SELECT elo FROM users WHERE id = $1", userID).Scan(&elo)
	if errors.Is(err, pgx.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("elo rank for %s: %w", userID, err)
	}

	var rank int
	err = r.db.QueryRow(ctx, "SELECT COUNT(*) + 1 FROM users WHERE elo > $1", elo).Scan(&rank)
	if err != nil {
		return -1, fmt.Errorf("elo rank for %s: %w", userID, err)
	}
	return rank, nil
}

func (r *userRepo) scanOne(ctx context.Context, query string, arg string) (*store.User, error) {
	u := &store.User{}
	err := r.db.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.DisplayName, &u.Balance, &u.Elo, &u.GamesPlayed, &u.Wins)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", strings.TrimSpace(arg), err)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// rowScanner is satisfied by pgx.Rows during iteration (Scan only;
// Query/rows.Next already consumed by the caller).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (*store.User, error) {
	u := &store.User{}
	if err := r.Scan(&u.ID, &u.Username, &u.DisplayName, &u.Balance, &u.Elo, &u.GamesPlayed, &u.Wins); err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
