// Package timer implements the per-room turn countdown of spec.md
// §4.3: start/stop/extend a deadline, tick once a second, and fire a
// Timeout event when the deadline passes. Grounded on the teacher's
// time.Time bookkeeping (pkg/poker/table.go's lastAction field) and
// on TylerPetri-P2Poker's single-goroutine dispatch shape
// (other_examples/.../apply.go), generalized into its own
// self-contained countdown goroutine per spec.md §9 ("event-style
// timer callbacks become typed messages on the room's inbound
// channel").
package timer

import (
	"context"
	"time"
)

const (
	MinDuration         = 5 * time.Second
	MaxDuration         = 60 * time.Second
	DefaultDuration     = 15 * time.Second
	CriticalThreshold   = 10 * time.Second
	tickInterval        = 1 * time.Second
	defaultExtendAmount = 5 * time.Second
)

// Event is one message emitted on the timer's output channel.
type Event struct {
	Kind          EventKind
	RoomID        string
	PlayerID      string
	TurnNumber    int
	RemainingSecs int
	IsCritical    bool
}

type EventKind int

const (
	Tick EventKind = iota
	Timeout
)

// Timer is a single per-room countdown. At most one is active per
// room (spec.md §4.3); callers construct a fresh Timer per turn.
type Timer struct {
	roomID     string
	playerID   string
	turnNumber int
	deadline   time.Time

	events chan Event
	cancel context.CancelFunc
	extend chan time.Duration
	done   chan struct{}
}

// Start creates and runs a new turn timer. duration is clamped to
// [MinDuration, MaxDuration]. The returned Timer's Events channel
// receives Tick events when remaining <= CriticalThreshold or
// remaining%5==0, and a single Timeout event when the deadline passes,
// after which the timer stops itself.
func Start(ctx context.Context, roomID, playerID string, turnNumber int, duration time.Duration) *Timer {
	if duration < MinDuration {
		duration = MinDuration
	}
	if duration > MaxDuration {
		duration = MaxDuration
	}

	runCtx, cancel := context.WithCancel(ctx)
	t := &Timer{
		roomID:     roomID,
		playerID:   playerID,
		turnNumber: turnNumber,
		deadline:   time.Now().Add(duration),
		events:     make(chan Event, 8),
		cancel:     cancel,
		extend:     make(chan time.Duration, 1),
		done:       make(chan struct{}),
	}
	go t.run(runCtx)
	return t
}

// Events returns the channel on which Tick/Timeout events are
// delivered. The channel is closed once the timer stops (by Stop,
// context cancellation, or firing Timeout).
func (t *Timer) Events() <-chan Event {
	return t.events
}

// Stop cancels the timer. Idempotent (spec.md §5).
func (t *Timer) Stop() {
	t.cancel()
}

// Extend atomically pushes the deadline out by additional. Used on
// reconnect (typical additional = 5s, spec.md §4.3).
func (t *Timer) Extend(additional time.Duration) {
	select {
	case t.extend <- additional:
	default:
		// a pending extend is about to be applied; the loop drains and
		// re-reads on its next tick, so drop is safe — at most one
		// extend is lost per 1s tick window, acceptable per the 1s
		// tick contract.
	}
}

func (t *Timer) run(ctx context.Context) {
	defer close(t.events)
	defer close(t.done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case add := <-t.extend:
			t.deadline = t.deadline.Add(add)
		case <-ticker.C:
			remaining := time.Until(t.deadline)
			if remaining <= 0 {
				select {
				case t.events <- Event{Kind: Timeout, RoomID: t.roomID, PlayerID: t.playerID, TurnNumber: t.turnNumber}:
				case <-ctx.Done():
				}
				return
			}
			remainingSecs := int(remaining.Round(time.Second) / time.Second)
			critical := remaining <= CriticalThreshold
			if critical || remainingSecs%5 == 0 {
				select {
				case t.events <- Event{
					Kind:          Tick,
					RoomID:        t.roomID,
					PlayerID:      t.playerID,
					TurnNumber:    t.turnNumber,
					RemainingSecs: remainingSecs,
					IsCritical:    critical,
				}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
