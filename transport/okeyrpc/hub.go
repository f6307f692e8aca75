package okeyrpc

import (
	"sync"

	"github.com/decred/slog"
)

// Hub is the transport's fan-out channel, the concrete binding of
// spec.md §6's sendToConnection/sendToGroup/addToGroup/removeFromGroup
// operations. Grounded on the teacher's Server.notificationStreams
// (pkg/server/server.go: a mutex-guarded map of playerID to an open
// stream) generalized to connection ids and room groups, since a
// single player may in principle hold more than one outbound queue
// across reconnects.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]chan *Event // connID -> outbound queue
	groups map[string]map[string]struct{} // roomID -> set of connIDs

	log slog.Logger
}

const connQueueSize = 64

func NewHub(log slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]chan *Event),
		groups: make(map[string]map[string]struct{}),
		log:    log,
	}
}

// register opens a connection's outbound queue, returning it for the
// stream-pump goroutine to drain. Mirrors the teacher's notification
// stream registration in StartNotificationStream.
func (h *Hub) register(connID string) chan *Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan *Event, connQueueSize)
	h.conns[connID] = ch
	return ch
}

// unregister closes and removes a connection's queue and drops it
// from every group it belonged to.
func (h *Hub) unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.conns[connID]; ok {
		close(ch)
		delete(h.conns, connID)
	}
	for roomID, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, roomID)
		}
	}
}

// AddToGroup associates connID with roomID, per spec.md §6.
func (h *Hub) AddToGroup(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.groups[roomID] = members
	}
	members[connID] = struct{}{}
}

// RemoveFromGroup disassociates connID from roomID.
func (h *Hub) RemoveFromGroup(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, roomID)
		}
	}
}

// SendToConnection delivers ev to exactly one open connection. A
// full or absent queue drops the event rather than blocking the
// caller, matching the room loop's own non-blocking emit() policy.
func (h *Hub) SendToConnection(connID string, ev *Event) {
	h.mu.RLock()
	ch, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		h.log.Warnf("okeyrpc: connection %s outbound full, dropping %s", connID, ev.Type)
	}
}

// SendToGroup delivers ev to every connection currently in roomID's
// group.
func (h *Hub) SendToGroup(roomID string, ev *Event) {
	h.mu.RLock()
	members := make([]string, 0, len(h.groups[roomID]))
	for connID := range h.groups[roomID] {
		members = append(members, connID)
	}
	h.mu.RUnlock()
	for _, connID := range members {
		h.SendToConnection(connID, ev)
	}
}
