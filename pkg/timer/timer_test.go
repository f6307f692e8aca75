package timer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerFiresTimeoutAfterDuration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tm := Start(ctx, "room1", "playerA", 1, MinDuration)
	var last Event
	for ev := range tm.Events() {
		last = ev
	}
	require.Equal(t, Timeout, last.Kind)
	require.Equal(t, "playerA", last.PlayerID)
}

func TestTimerDurationClamped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tm := Start(ctx, "r", "p", 1, 1*time.Second)
	require.True(t, time.Until(tm.deadline) <= MinDuration)
	tm.Stop()
	cancel()
}

func TestTimerExtendPushesDeadlineOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tm := Start(ctx, "r", "p", 1, MinDuration)
	before := tm.deadline
	tm.Extend(5 * time.Second)
	time.Sleep(1100 * time.Millisecond) // let the loop apply the pending extend
	require.True(t, tm.deadline.After(before))
	tm.Stop()
}

func TestTimerStopIsIdempotent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tm := Start(ctx, "r", "p", 1, MinDuration)
	tm.Stop()
	tm.Stop()
}
