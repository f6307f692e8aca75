// Package connreg implements the connection registry of spec.md §4.5:
// a player id -> (room id, last connection id, last-connected time)
// mapping supporting lookup, save, and remove, with a 30s reconnect
// window measured from a recorded disconnect time. Grounded on the
// teacher's Server.notificationStreams map + notificationMu RWMutex
// (pkg/server/server.go, pkg/server/notifications.go): a mutex-guarded
// map keyed by player id, read under its read lock from any goroutine.
package connreg

import (
	"sync"
	"time"
)

const ReconnectWindow = 30 * time.Second

// Mapping is one player's connection bookkeeping.
type Mapping struct {
	PlayerID       string
	RoomID         string
	ConnID         string
	LastConnected  time.Time
	DisconnectedAt time.Time
	Disconnected   bool
}

// Registry is the process-wide player -> connection map. Safe for
// concurrent use by many room loops and the transport layer.
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]Mapping
}

func New() *Registry {
	return &Registry{mappings: make(map[string]Mapping)}
}

// Save records or updates a player's connection, marking them
// connected and clearing any prior disconnect stamp.
func (r *Registry) Save(playerID, roomID, connID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[playerID] = Mapping{
		PlayerID:      playerID,
		RoomID:        roomID,
		ConnID:        connID,
		LastConnected: now,
	}
}

// MarkDisconnected stamps disconnectedAt on an existing mapping,
// keeping the seat/room association (spec.md: "Disconnect ... keep
// seat"). A no-op if the player has no mapping.
func (r *Registry) MarkDisconnected(playerID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mappings[playerID]
	if !ok {
		return
	}
	m.Disconnected = true
	m.DisconnectedAt = now
	r.mappings[playerID] = m
}

// Lookup returns the current mapping for playerID, if any.
func (r *Registry) Lookup(playerID string) (Mapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[playerID]
	return m, ok
}

// Remove deletes a player's mapping entirely.
func (r *Registry) Remove(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mappings, playerID)
}

// CanReconnect reports whether a reconnect attempt at `now` falls
// within the 30s window from the recorded disconnect time. A mapping
// older than the window is considered stale for room-acceptance
// purposes even though it may still exist here for observability
// (spec.md §4.5).
func (r *Registry) CanReconnect(playerID string, now time.Time) bool {
	m, ok := r.Lookup(playerID)
	if !ok || !m.Disconnected {
		return false
	}
	return now.Sub(m.DisconnectedAt) <= ReconnectWindow
}
