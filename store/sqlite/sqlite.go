// Package sqlite persists room snapshots for restart recovery,
// grounded on and adapted from the teacher's pkg/server/internal/db
// (TableState/PlayerState, JSON-serialized card/community-card
// columns) — renamed to tile/hand/indicator columns for Okey rooms.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RoomState is the persistent shape of one room, restorable across a
// process restart the way the teacher's loadTableFromDatabase restores
// a *poker.Table.
type RoomState struct {
	ID             string
	Name           string
	Stake          int64
	Phase          string
	SubPhase       string
	CurrentTurn    string
	IndicatorJSON  string // JSON-encoded tiles.Tile
	DeckJSON       string // JSON-encoded []tiles.Tile
	DiscardJSON    string // JSON-encoded []tiles.Tile
	CommitmentHash string
	ServerSeedJSON string
	CreatedAt      time.Time
	LastAction     time.Time
}

// SeatState is one seated player's persisted hand/roster row.
type SeatState struct {
	RoomID      string
	Seat        string
	PlayerID    string
	DisplayName string
	IsBot       bool
	Connected   bool
	HandJSON    string // JSON-encoded []tiles.Tile
}

// DB is the sqlite-backed room-snapshot store.
type DB struct {
	*sql.DB
}

// Open creates the database file's parent directory if needed and
// opens (creating on first use) the sqlite connection, mirroring the
// teacher's NewDatabase/NewDB pairing.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if err := createTables(sqlDB); err != nil {
		return nil, err
	}
	return &DB{sqlDB}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS room_states (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			stake INTEGER NOT NULL,
			phase TEXT NOT NULL,
			sub_phase TEXT NOT NULL DEFAULT '',
			current_turn TEXT NOT NULL DEFAULT '',
			indicator TEXT DEFAULT '{}',
			deck TEXT DEFAULT '[]',
			discard TEXT DEFAULT '[]',
			commitment_hash TEXT DEFAULT '',
			server_seed TEXT DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_action TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS seat_states (
			room_id TEXT NOT NULL,
			seat TEXT NOT NULL,
			player_id TEXT NOT NULL,
			display_name TEXT NOT NULL,
			is_bot BOOLEAN NOT NULL DEFAULT FALSE,
			connected BOOLEAN NOT NULL DEFAULT FALSE,
			hand TEXT DEFAULT '[]',
			PRIMARY KEY (room_id, seat),
			FOREIGN KEY (room_id) REFERENCES room_states(id) ON DELETE CASCADE
		)
	`)
	return err
}

// SaveSnapshot atomically persists a room and its seated players'
// hands, mirroring the teacher's SaveSnapshot(tableState, playerStates).
func (db *DB) SaveSnapshot(room *RoomState, seats []*SeatState) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO room_states (id, name, stake, phase, sub_phase, current_turn, indicator, deck, discard, commitment_hash, server_seed, last_action)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			phase = excluded.phase, sub_phase = excluded.sub_phase, current_turn = excluded.current_turn,
			indicator = excluded.indicator, deck = excluded.deck, discard = excluded.discard,
			commitment_hash = excluded.commitment_hash, server_seed = excluded.server_seed, last_action = CURRENT_TIMESTAMP
	`, room.ID, room.Name, room.Stake, room.Phase, room.SubPhase, room.CurrentTurn,
		room.IndicatorJSON, room.DeckJSON, room.DiscardJSON, room.CommitmentHash, room.ServerSeedJSON)
	if err != nil {
		return fmt.Errorf("save room state: %w", err)
	}

	for _, s := range seats {
		_, err = tx.Exec(`
			INSERT INTO seat_states (room_id, seat, player_id, display_name, is_bot, connected, hand)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(room_id, seat) DO UPDATE SET
				player_id = excluded.player_id, display_name = excluded.display_name,
				is_bot = excluded.is_bot, connected = excluded.connected, hand = excluded.hand
		`, s.RoomID, s.Seat, s.PlayerID, s.DisplayName, s.IsBot, s.Connected, s.HandJSON)
		if err != nil {
			return fmt.Errorf("save seat state: %w", err)
		}
	}

	return tx.Commit()
}

func (db *DB) LoadRoomState(roomID string) (*RoomState, error) {
	r := &RoomState{}
	err := db.QueryRow(`
		SELECT id, name, stake, phase, sub_phase, current_turn, indicator, deck, discard, commitment_hash, server_seed, created_at, last_action
		FROM room_states WHERE id = ?
	`, roomID).Scan(&r.ID, &r.Name, &r.Stake, &r.Phase, &r.SubPhase, &r.CurrentTurn,
		&r.IndicatorJSON, &r.DeckJSON, &r.DiscardJSON, &r.CommitmentHash, &r.ServerSeedJSON, &r.CreatedAt, &r.LastAction)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("room %s not found", roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load room state: %w", err)
	}
	return r, nil
}

func (db *DB) LoadSeatStates(roomID string) ([]*SeatState, error) {
	rows, err := db.Query(`
		SELECT room_id, seat, player_id, display_name, is_bot, connected, hand
		FROM seat_states WHERE room_id = ?
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("load seat states: %w", err)
	}
	defer rows.Close()

	var out []*SeatState
	for rows.Next() {
		s := &SeatState{}
		if err := rows.Scan(&s.RoomID, &s.Seat, &s.PlayerID, &s.DisplayName, &s.IsBot, &s.Connected, &s.HandJSON); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (db *DB) DeleteRoomState(roomID string) error {
	_, err := db.Exec(`DELETE FROM room_states WHERE id = ?`, roomID)
	return err
}

// GetAllRoomIDs lists every persisted room, mirroring the teacher's
// GetAllTableIDs (used to repopulate the Manager on process startup).
func (db *DB) GetAllRoomIDs() ([]string, error) {
	rows, err := db.Query(`SELECT id FROM room_states`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EncodeJSON is a small convenience so callers don't need their own
// json import just to populate *JSON fields.
func EncodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func (db *DB) Close() error { return db.DB.Close() }
