package leaderboard

import (
	"context"
	"time"

	"github.com/decred/slog"
)

// Reconciler periodically rebuilds the projection from the
// authoritative store, per spec.md §4.7's "a periodic reconciler
// re-syncs from the persistent store." Grounded on the teacher's
// ticker/select/ctx.Done loop (pkg/poker/table.go Subscribe).
type Reconciler struct {
	proj      *Projection
	interval  time.Duration
	batchSize int
	log       slog.Logger
}

func NewReconciler(proj *Projection, interval time.Duration, batchSize int, log slog.Logger) *Reconciler {
	return &Reconciler{proj: proj, interval: interval, batchSize: batchSize, log: log}
}

// Run blocks until ctx is cancelled, resyncing every interval.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.proj.FullSyncFromStore(ctx, r.batchSize); err != nil {
				r.log.Warnf("leaderboard reconciler: full sync failed: %v", err)
			}
		}
	}
}
