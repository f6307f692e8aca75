package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/okeyrelay/core/store"
)

type gameHistoryRepo struct{ db dbtx }

func (r *gameHistoryRepo) GetByID(ctx context.Context, id string) (*store.GameHistory, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, room_id, player_ids, winner_id, win_type, table_stake, status, started_at, finished_at
		FROM game_histories WHERE id = $1
	`, id)
	return scanGameHistory(row)
}

func (r *gameHistoryRepo) GetByRoomID(ctx context.Context, roomID string) ([]*store.GameHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, room_id, player_ids, winner_id, win_type, table_stake, status, started_at, finished_at
		FROM game_histories WHERE room_id = $1 ORDER BY started_at
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("game histories for room %s: %w", roomID, err)
	}
	defer rows.Close()

	var out []*store.GameHistory
	for rows.Next() {
		g, err := scanGameHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *gameHistoryRepo) Add(ctx context.Context, g *store.GameHistory) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO game_histories (id, room_id, player_ids, winner_id, win_type, table_stake, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, g.ID, g.RoomID, g.PlayerIDs, g.WinnerID, int(g.WinType), g.TableStake, int(g.Status), g.StartedAt, nullableTime(g.FinishedAt))
	if err != nil {
		return fmt.Errorf("add game history %s: %w", g.ID, err)
	}
	return nil
}

func (r *gameHistoryRepo) Update(ctx context.Context, g *store.GameHistory) error {
	_, err := r.db.Exec(ctx, `
		UPDATE game_histories SET winner_id = $2, win_type = $3, status = $4, finished_at = $5
		WHERE id = $1
	`, g.ID, g.WinnerID, int(g.WinType), int(g.Status), nullableTime(g.FinishedAt))
	if err != nil {
		return fmt.Errorf("update game history %s: %w", g.ID, err)
	}
	return nil
}

func scanGameHistory(row pgx.Row) (*store.GameHistory, error) {
	g := &store.GameHistory{}
	var winType, status int
	if err := row.Scan(&g.ID, &g.RoomID, &g.PlayerIDs, &g.WinnerID, &winType, &g.TableStake, &status, &g.StartedAt, &g.FinishedAt); err != nil {
		return nil, fmt.Errorf("scan game history: %w", err)
	}
	g.WinType = store.WinType(winType)
	g.Status = store.GameStatus(status)
	return g, nil
}
