package leaderboard_test

import (
	"context"
	"os"
	"testing"

	"github.com/decred/slog"
	"github.com/okeyrelay/core/pkg/leaderboard"
	"github.com/okeyrelay/core/store"
	"github.com/stretchr/testify/require"
)

func testLog() slog.Logger {
	backend := slog.NewBackend(os.Stderr)
	l := backend.Logger("test")
	l.SetLevel(slog.LevelError)
	return l
}

// stubStore is only used by Projection's fallback path; it need not
// implement a transaction, only Users().TopByElo.
type stubStore struct{ users []*store.User }

func (s stubStore) Users() store.Users                      { return stubUsers{s.users} }
func (s stubStore) GameHistories() store.GameHistories       { return nil }
func (s stubStore) ChipTransactions() store.ChipTransactions { return nil }
func (s stubStore) BeginTransaction(context.Context) (store.UnitOfWork, error) { return nil, nil }
func (s stubStore) Close() error                             { return nil }

type stubUsers struct{ users []*store.User }

func (s stubUsers) GetByID(context.Context, string) (*store.User, error)         { return nil, nil }
func (s stubUsers) GetByUsername(context.Context, string) (*store.User, error)   { return nil, nil }
func (s stubUsers) GetByIDs(context.Context, []string) ([]*store.User, error)    { return nil, nil }
func (s stubUsers) Add(context.Context, *store.User) error                       { return nil }
func (s stubUsers) Update(context.Context, *store.User) error                    { return nil }
func (s stubUsers) EloRank(context.Context, string) (int, error)                 { return 0, nil }
func (s stubUsers) TopByElo(_ context.Context, n int) ([]*store.User, error) {
	if n > len(s.users) {
		n = len(s.users)
	}
	return s.users[:n], nil
}

func TestTopNOrdersDescendingByElo(t *testing.T) {
	lb := leaderboard.NewMemoryStore()
	db := stubStore{}
	p := leaderboard.NewProjection(lb, db, testLog())

	require.NoError(t, p.SetScore(context.Background(), &store.User{ID: "a", Username: "a", Elo: 1200, GamesPlayed: 10, Wins: 5}))
	require.NoError(t, p.SetScore(context.Background(), &store.User{ID: "b", Username: "b", Elo: 1500, GamesPlayed: 20, Wins: 15}))
	require.NoError(t, p.SetScore(context.Background(), &store.User{ID: "c", Username: "c", Elo: 1000, GamesPlayed: 5, Wins: 1}))

	top, err := p.TopN(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "b", top[0].UserID)
	require.Equal(t, 1, top[0].Rank)
	require.Equal(t, "a", top[1].UserID)
	require.Equal(t, 2, top[1].Rank)
	require.InDelta(t, 0.75, top[0].WinRate, 0.001)
}

func TestRankOfUserAndNeighbors(t *testing.T) {
	lb := leaderboard.NewMemoryStore()
	p := leaderboard.NewProjection(lb, stubStore{}, testLog())

	for i, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, p.SetScore(context.Background(), &store.User{ID: id, Elo: 1000 - i*10}))
	}

	rank, err := p.RankOfUser(context.Background(), "c")
	require.NoError(t, err)
	require.Equal(t, 3, rank)

	neighbors, err := p.UserWithNeighbors(context.Background(), "c", 1)
	require.NoError(t, err)
	require.Len(t, neighbors, 3)
	require.Equal(t, []string{"b", "c", "d"}, []string{neighbors[0].UserID, neighbors[1].UserID, neighbors[2].UserID})
}

func TestRemoveUserDropsFromRanking(t *testing.T) {
	lb := leaderboard.NewMemoryStore()
	p := leaderboard.NewProjection(lb, stubStore{}, testLog())
	require.NoError(t, p.SetScore(context.Background(), &store.User{ID: "a", Elo: 1000}))

	require.NoError(t, p.RemoveUser(context.Background(), "a"))
	rank, err := p.RankOfUser(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, -1, rank)
}

func TestFullSyncFromStoreRebuildsProjection(t *testing.T) {
	lb := leaderboard.NewMemoryStore()
	db := stubStore{users: []*store.User{
		{ID: "a", Elo: 1400, Username: "alice"},
		{ID: "b", Elo: 1100, Username: "bob"},
	}}
	p := leaderboard.NewProjection(lb, db, testLog())

	require.NoError(t, p.FullSyncFromStore(context.Background(), 10))
	top, err := p.TopN(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "a", top[0].UserID)
	require.Equal(t, "alice", top[0].Username)
}
