// Package leaderboard implements spec.md §4.7's derived ELO ranking
// index: a sorted-set projection kept eventually consistent with the
// Users store, updated asynchronously after each settlement commit
// and periodically reconciled in full.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/decred/slog"
	"github.com/okeyrelay/core/store"
)

const eloSetKey = "leaderboard:elo"

// Entry is one ranked user as the projection reports it: the ELO score
// plus the per-user hash fields spec.md §4.7 names.
type Entry struct {
	UserID      string
	Rank        int // 1-based
	Elo         int
	Username    string
	DisplayName string
	GamesPlayed int
	WinRate     float64
}

// Projection is the read/write facade spec.md §4.7 describes: top-N,
// rank-of-user, user-with-neighbors, range-by-rank, set-score, batch
// set-scores, remove-user, full-sync-from-store — backed by a
// store.Leaderboard sorted-set/hash port, falling back to a direct
// store.Users query when that projection is unreachable.
type Projection struct {
	lb  store.Leaderboard
	db  store.Store
	log slog.Logger
}

func NewProjection(lb store.Leaderboard, db store.Store, log slog.Logger) *Projection {
	return &Projection{lb: lb, db: db, log: log}
}

func userHashKey(userID string) string { return "leaderboard:user:" + userID }

// SetScore updates one user's ranking and profile fields. Called by
// the transport Dispatcher after Pipeline.Settle commits (per spec.md
// §4.7's consistency note: a failure here never invalidates the
// already-committed game result).
func (p *Projection) SetScore(ctx context.Context, u *store.User) error {
	if err := p.lb.SortedSetAdd(ctx, eloSetKey, u.ID, float64(u.Elo)); err != nil {
		return err
	}
	winRate := 0.0
	if u.GamesPlayed > 0 {
		winRate = float64(u.Wins) / float64(u.GamesPlayed)
	}
	key := userHashKey(u.ID)
	fields := map[string]string{
		"username":    u.Username,
		"displayName": u.DisplayName,
		"gamesPlayed": strconv.Itoa(u.GamesPlayed),
		"winRate":     strconv.FormatFloat(winRate, 'f', 4, 64),
	}
	for field, value := range fields {
		if err := p.lb.HashSet(ctx, key, field, value); err != nil {
			return err
		}
	}
	return nil
}

// BatchSetScores applies SetScore for every user, logging (rather than
// aborting on) a per-user failure: one bad projection write must not
// block the rest of a reconciliation pass.
func (p *Projection) BatchSetScores(ctx context.Context, users []*store.User) {
	for _, u := range users {
		if err := p.SetScore(ctx, u); err != nil {
			p.log.Warnf("leaderboard: set-score failed for %s: %v", u.ID, err)
		}
	}
}

// RemoveUser drops a user from the ranking, e.g. on account deletion.
func (p *Projection) RemoveUser(ctx context.Context, userID string) error {
	return p.lb.SortedSetRemove(ctx, eloSetKey, userID)
}

// TopN returns the N highest-ranked users, descending.
func (p *Projection) TopN(ctx context.Context, n int) ([]Entry, error) {
	ranked, err := p.lb.SortedSetRangeByRank(ctx, eloSetKey, 0, n-1)
	if err != nil {
		return p.fallbackTopN(ctx, n)
	}
	return p.hydrate(ctx, ranked, 1), nil
}

// RangeByRank returns users ranked [startRank, stopRank] (1-based,
// inclusive, descending), falling back to a direct store query when
// the projection errors.
func (p *Projection) RangeByRank(ctx context.Context, startRank, stopRank int) ([]Entry, error) {
	ranked, err := p.lb.SortedSetRangeByRank(ctx, eloSetKey, startRank-1, stopRank-1)
	if err != nil {
		users, ferr := p.db.Users().TopByElo(ctx, stopRank)
		if ferr != nil {
			return nil, ferr
		}
		var out []Entry
		for i := startRank - 1; i < len(users); i++ {
			if i >= 0 {
				out = append(out, entryFromUser(users[i], i+1))
			}
		}
		return out, nil
	}
	return p.hydrate(ctx, ranked, startRank), nil
}

// RankOfUser returns userID's 1-based rank, or -1 if absent — the
// not-found sentinel applied consistently across the leaderboard and
// store layers (see DESIGN.md).
func (p *Projection) RankOfUser(ctx context.Context, userID string) (rank int, err error) {
	zeroBased, ok, err := p.lb.SortedSetRank(ctx, eloSetKey, userID)
	if err != nil {
		return -1, err
	}
	if !ok {
		return -1, nil
	}
	return zeroBased + 1, nil
}

// UserWithNeighbors returns userID plus up to radius ranked users on
// either side of it.
func (p *Projection) UserWithNeighbors(ctx context.Context, userID string, radius int) ([]Entry, error) {
	rank, err := p.RankOfUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rank == -1 {
		return nil, fmt.Errorf("user %s not ranked", userID)
	}
	start := rank - radius
	if start < 1 {
		start = 1
	}
	return p.RangeByRank(ctx, start, rank+radius)
}

// FullSyncFromStore re-applies the top batchSize users by ELO from the
// authoritative Users store — the reconciler's recovery path, and the
// periodic fallback spec.md §4.7 calls for when the projection drifts.
// Entries for users outside that batch are left as they are.
func (p *Projection) FullSyncFromStore(ctx context.Context, batchSize int) error {
	users, err := p.db.Users().TopByElo(ctx, batchSize)
	if err != nil {
		return err
	}
	p.BatchSetScores(ctx, users)
	return nil
}

// fallbackTopN satisfies spec.md §4.7's "Top-N ... queries fall back
// to a direct store query if the projection is unreachable."
func (p *Projection) fallbackTopN(ctx context.Context, n int) ([]Entry, error) {
	users, err := p.db.Users().TopByElo(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(users))
	for i, u := range users {
		out[i] = entryFromUser(u, i+1)
	}
	return out, nil
}

func (p *Projection) hydrate(ctx context.Context, ranked []store.Ranked, startRank int) []Entry {
	out := make([]Entry, len(ranked))
	for i, r := range ranked {
		e := Entry{UserID: r.Member, Rank: startRank + i, Elo: int(r.Score)}
		fields, err := p.lb.HashGetAll(ctx, userHashKey(r.Member))
		if err == nil {
			e.Username = fields["username"]
			e.DisplayName = fields["displayName"]
			if gp, err := strconv.Atoi(fields["gamesPlayed"]); err == nil {
				e.GamesPlayed = gp
			}
			if wr, err := strconv.ParseFloat(fields["winRate"], 64); err == nil {
				e.WinRate = wr
			}
		}
		out[i] = e
	}
	return out
}

func entryFromUser(u *store.User, rank int) Entry {
	winRate := 0.0
	if u.GamesPlayed > 0 {
		winRate = float64(u.Wins) / float64(u.GamesPlayed)
	}
	return Entry{
		UserID:      u.ID,
		Rank:        rank,
		Elo:         u.Elo,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		GamesPlayed: u.GamesPlayed,
		WinRate:     winRate,
	}
}
