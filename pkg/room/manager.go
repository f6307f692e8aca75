package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/okeyrelay/core/pkg/connreg"
	"github.com/okeyrelay/core/pkg/obslog"
	"github.com/okeyrelay/core/pkg/okerr"
)

// Manager is the process-wide registry of live rooms and their
// single-writer loops, grounded on the teacher's Server.tables map
// (pkg/server/server.go) and its lobby operations (pkg/server/lobby.go
// CreateTable/JoinTable/LeaveTable/GetTables), generalized from a
// mutex-guarded map of *poker.Table to one of *room.Room, each already
// internally lock-free.
type Manager struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	log     slog.Logger
	backend *obslog.Backend
	connReg *connreg.Registry
}

func NewManager(backend *obslog.Backend, connReg *connreg.Registry) *Manager {
	return &Manager{
		rooms:   make(map[string]*Room),
		log:     backend.Logger("ROOMMGR"),
		backend: backend,
		connReg: connReg,
	}
}

// CreateRoom seats creatorID at South in a brand-new room and starts
// its loop, per spec.md §4.2's CreateRoom command.
func (m *Manager) CreateRoom(ctx context.Context, name string, stake int64, creatorID, creatorName string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := fmt.Sprintf("room_%s", uuid.NewString())
	cfg := Config{
		ID:        id,
		Name:      name,
		Stake:     stake,
		CreatorID: creatorID,
		Log:       m.backend.Logger("ROOM-" + id),
	}
	r := New(cfg, creatorID, creatorName, m.connReg)
	m.rooms[id] = r
	m.log.Infof("created room %s for %s (stake %d)", id, creatorID, stake)
	go r.Run(ctx)
	return r, nil
}

// Get returns the room with id, if live.
func (m *Manager) Get(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// JoinRoom routes a JoinRoom command to the named room (spec.md §4.2).
func (m *Manager) JoinRoom(ctx context.Context, roomID, playerID, displayName, connID string) error {
	r, ok := m.Get(roomID)
	if !ok {
		return okerr.New(okerr.NotFound, "room not found")
	}
	return r.Submit(ctx, Command{Type: CmdJoinRoom, PlayerID: playerID, DisplayName: displayName, ConnID: connID})
}

// LeaveRoom routes a LeaveRoom command.
func (m *Manager) LeaveRoom(ctx context.Context, roomID, playerID string) error {
	r, ok := m.Get(roomID)
	if !ok {
		return okerr.New(okerr.NotFound, "room not found")
	}
	return r.Submit(ctx, Command{Type: CmdLeaveRoom, PlayerID: playerID})
}

// PlayerRoom finds which live room, if any, playerID currently
// occupies, per the teacher's GetPlayerCurrentTable.
func (m *Manager) PlayerRoom(playerID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, r := range m.rooms {
		for _, pid := range r.Summary().PlayerIDs {
			if pid == playerID {
				return id, true
			}
		}
	}
	return "", false
}

// ListRooms returns a snapshot of every live room's summary, per the
// teacher's GetTables.
func (m *Manager) ListRooms() []Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Summary, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Summary())
	}
	return out
}

// Reap removes rooms that reached Finished or Cancelled more than
// gracePeriod ago, so completed games don't leak goroutines/map
// entries forever. Intended to be called periodically (grounded on
// the teacher's reconciler-ticker shape, reused here at room scope
// instead of leaderboard scope).
func (m *Manager) Reap(gracePeriod time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	cutoff := time.Now().Add(-gracePeriod)
	for id, r := range m.rooms {
		s := r.Summary()
		if (s.Phase == Finished || s.Phase == Cancelled) && s.FinishedAt.Before(cutoff) {
			delete(m.rooms, id)
			removed++
		}
	}
	if removed > 0 {
		m.log.Debugf("reaped %d finished/cancelled rooms", removed)
	}
	return removed
}
