package settlement_test

import (
	"context"
	"os"
	"testing"

	"github.com/decred/slog"
	"github.com/okeyrelay/core/pkg/settlement"
	"github.com/okeyrelay/core/store"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory store.Store, grounded on the
// teacher's test style of exercising real package code against a
// lightweight stand-in rather than a mock framework
// (pkg/poker/game_test.go builds a real *poker.Table directly; here
// the transactional boundary itself is what's under test, so the
// stand-in implements the same commit/rollback contract the real
// store would).
type fakeStore struct {
	users          map[string]*store.User
	txByKey        map[string]*store.ChipTransaction
	txByGameHistID map[string][]*store.ChipTransaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:          make(map[string]*store.User),
		txByKey:        make(map[string]*store.ChipTransaction),
		txByGameHistID: make(map[string][]*store.ChipTransaction),
	}
}

func (fs *fakeStore) Users() store.Users                      { return fakeUsers{fs} }
func (fs *fakeStore) GameHistories() store.GameHistories       { return fakeGameHistories{} }
func (fs *fakeStore) ChipTransactions() store.ChipTransactions { return fakeTxs{fs} }
func (fs *fakeStore) Close() error                             { return nil }

func (fs *fakeStore) BeginTransaction(context.Context) (store.UnitOfWork, error) {
	pendingUsers := make(map[string]*store.User)
	for k, v := range fs.users {
		cp := *v
		pendingUsers[k] = &cp
	}
	return &fakeUow{parent: fs, users: pendingUsers, pendingTxKeys: make(map[string]*store.ChipTransaction)}, nil
}

type notFoundErr struct{ id string }

func (e *notFoundErr) Error() string { return "user not found: " + e.id }

type fakeUsers struct{ fs *fakeStore }

func (u fakeUsers) GetByID(_ context.Context, id string) (*store.User, error) {
	usr, ok := u.fs.users[id]
	if !ok {
		return nil, &notFoundErr{id}
	}
	cp := *usr
	return &cp, nil
}
func (u fakeUsers) GetByUsername(context.Context, string) (*store.User, error) { return nil, nil }
func (u fakeUsers) GetByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	out := make([]*store.User, 0, len(ids))
	for _, id := range ids {
		usr, err := u.GetByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, usr)
	}
	return out, nil
}
func (u fakeUsers) Add(_ context.Context, usr *store.User) error {
	u.fs.users[usr.ID] = usr
	return nil
}
func (u fakeUsers) Update(_ context.Context, usr *store.User) error {
	u.fs.users[usr.ID] = usr
	return nil
}
func (u fakeUsers) TopByElo(context.Context, int) ([]*store.User, error) { return nil, nil }
func (u fakeUsers) EloRank(context.Context, string) (int, error)         { return 0, nil }

type fakeGameHistories struct{}

func (fakeGameHistories) GetByID(context.Context, string) (*store.GameHistory, error) { return nil, nil }
func (fakeGameHistories) GetByRoomID(context.Context, string) ([]*store.GameHistory, error) {
	return nil, nil
}
func (fakeGameHistories) Add(context.Context, *store.GameHistory) error    { return nil }
func (fakeGameHistories) Update(context.Context, *store.GameHistory) error { return nil }

type fakeTxs struct{ fs *fakeStore }

func (t fakeTxs) GetByID(context.Context, int64) (*store.ChipTransaction, error) { return nil, nil }
func (t fakeTxs) GetByReferenceNumber(context.Context, string) (*store.ChipTransaction, error) {
	return nil, nil
}
func (t fakeTxs) GetByIdempotencyKey(_ context.Context, key string) (*store.ChipTransaction, error) {
	return t.fs.txByKey[key], nil
}
func (t fakeTxs) GetByGameHistoryID(_ context.Context, gid string) ([]*store.ChipTransaction, error) {
	return t.fs.txByGameHistID[gid], nil
}
func (t fakeTxs) Add(_ context.Context, tx *store.ChipTransaction) error {
	t.fs.txByKey[tx.IdempotencyKey] = tx
	t.fs.txByGameHistID[tx.GameHistoryID] = append(t.fs.txByGameHistID[tx.GameHistoryID], tx)
	return nil
}
func (t fakeTxs) AddRange(ctx context.Context, ts []*store.ChipTransaction) error {
	for _, tx := range ts {
		_ = t.Add(ctx, tx)
	}
	return nil
}

// fakeUow stages user mutations and new transactions, merging into the
// parent store only on Commit — mirrors leanlp-BTC-coinjoin's
// Begin/Exec/Commit shape without a real database underneath.
type fakeUow struct {
	parent        *fakeStore
	users         map[string]*store.User
	pendingTxKeys map[string]*store.ChipTransaction
}

func (u *fakeUow) Users() store.Users                      { return uowUsers{u} }
func (u *fakeUow) GameHistories() store.GameHistories       { return fakeGameHistories{} }
func (u *fakeUow) ChipTransactions() store.ChipTransactions { return uowTxs{u} }

func (u *fakeUow) Commit(context.Context) error {
	for id, usr := range u.users {
		u.parent.users[id] = usr
	}
	for key, tx := range u.pendingTxKeys {
		u.parent.txByKey[key] = tx
		u.parent.txByGameHistID[tx.GameHistoryID] = append(u.parent.txByGameHistID[tx.GameHistoryID], tx)
	}
	return nil
}
func (u *fakeUow) Rollback(context.Context) error { return nil }

type uowUsers struct{ u *fakeUow }

func (v uowUsers) GetByID(_ context.Context, id string) (*store.User, error) {
	if usr, ok := v.u.users[id]; ok {
		cp := *usr
		return &cp, nil
	}
	if usr, ok := v.u.parent.users[id]; ok {
		cp := *usr
		return &cp, nil
	}
	return nil, &notFoundErr{id}
}
func (v uowUsers) GetByUsername(context.Context, string) (*store.User, error) { return nil, nil }
func (v uowUsers) GetByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	out := make([]*store.User, 0, len(ids))
	for _, id := range ids {
		usr, err := v.GetByID(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, usr)
	}
	return out, nil
}
func (v uowUsers) Add(_ context.Context, usr *store.User) error {
	v.u.users[usr.ID] = usr
	return nil
}
func (v uowUsers) Update(_ context.Context, usr *store.User) error {
	v.u.users[usr.ID] = usr
	return nil
}
func (v uowUsers) TopByElo(context.Context, int) ([]*store.User, error) { return nil, nil }
func (v uowUsers) EloRank(context.Context, string) (int, error)         { return 0, nil }

type uowTxs struct{ u *fakeUow }

func (v uowTxs) GetByID(context.Context, int64) (*store.ChipTransaction, error) { return nil, nil }
func (v uowTxs) GetByReferenceNumber(context.Context, string) (*store.ChipTransaction, error) {
	return nil, nil
}
func (v uowTxs) GetByIdempotencyKey(_ context.Context, key string) (*store.ChipTransaction, error) {
	if tx, ok := v.u.pendingTxKeys[key]; ok {
		return tx, nil
	}
	return v.u.parent.txByKey[key], nil
}
func (v uowTxs) GetByGameHistoryID(_ context.Context, gid string) ([]*store.ChipTransaction, error) {
	return v.u.parent.txByGameHistID[gid], nil
}
func (v uowTxs) Add(_ context.Context, t *store.ChipTransaction) error {
	v.u.pendingTxKeys[t.IdempotencyKey] = t
	return nil
}
func (v uowTxs) AddRange(ctx context.Context, ts []*store.ChipTransaction) error {
	for _, t := range ts {
		_ = v.Add(ctx, t)
	}
	return nil
}

func testLog() slog.Logger {
	backend := slog.NewBackend(os.Stderr)
	l := backend.Logger("test")
	l.SetLevel(slog.LevelError)
	return l
}

func TestCollectStakesDebitsEachHuman(t *testing.T) {
	fs := newFakeStore()
	fs.users["p1"] = &store.User{ID: "p1", Balance: 1000, Elo: 1200}
	fs.users["p2"] = &store.User{ID: "p2", Balance: 1000, Elo: 1200}
	p := settlement.New(fs, testLog())

	require.NoError(t, p.CollectStakes(context.Background(), "game1", []string{"p1", "p2"}, 100))
	require.Equal(t, int64(900), fs.users["p1"].Balance)
	require.Equal(t, int64(900), fs.users["p2"].Balance)
}

func TestCollectStakesInsufficientBalanceAbortsEntirely(t *testing.T) {
	fs := newFakeStore()
	fs.users["p1"] = &store.User{ID: "p1", Balance: 1000}
	fs.users["p2"] = &store.User{ID: "p2", Balance: 50}
	p := settlement.New(fs, testLog())

	err := p.CollectStakes(context.Background(), "game1", []string{"p1", "p2"}, 100)
	require.Error(t, err)
	require.Equal(t, int64(1000), fs.users["p1"].Balance, "no partial debit on abort")
}

func TestCollectStakesIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	fs.users["p1"] = &store.User{ID: "p1", Balance: 1000}
	p := settlement.New(fs, testLog())

	require.NoError(t, p.CollectStakes(context.Background(), "game1", []string{"p1"}, 100))
	require.NoError(t, p.CollectStakes(context.Background(), "game1", []string{"p1"}, 100))
	require.Equal(t, int64(900), fs.users["p1"].Balance, "retried collection must not double-debit")
}

func TestSettleCreditsWinnerGrossPayout(t *testing.T) {
	fs := newFakeStore()
	for _, id := range []string{"w", "l1", "l2", "l3"} {
		fs.users[id] = &store.User{ID: id, Balance: 900, Elo: 1200}
	}
	p := settlement.New(fs, testLog())

	res := settlement.GameResult{
		GameID:     "game1",
		RoomID:     "room1",
		PlayerIDs:  []string{"w", "l1", "l2", "l3"},
		WinnerID:   "w",
		WinType:    store.WinNormal,
		TableStake: 100,
	}
	require.NoError(t, p.Settle(context.Background(), res))

	// totalPot 400, rake = min(20, 10000) = 20, payout = 380; balance already
	// reflects the 100 stake debited by a prior CollectStakes, so the winner
	// is credited the full gross payout, not payout-minus-stake.
	require.Equal(t, int64(900+380), fs.users["w"].Balance)
	require.Greater(t, fs.users["w"].Elo, 1200)
	require.Less(t, fs.users["l1"].Elo, 1200)
	require.Equal(t, 1, fs.users["w"].Wins)
}

func TestSettleIsIdempotent(t *testing.T) {
	fs := newFakeStore()
	for _, id := range []string{"w", "l1", "l2", "l3"} {
		fs.users[id] = &store.User{ID: id, Balance: 900, Elo: 1200}
	}
	p := settlement.New(fs, testLog())
	res := settlement.GameResult{GameID: "game1", PlayerIDs: []string{"w", "l1", "l2", "l3"}, WinnerID: "w", WinType: store.WinNormal, TableStake: 100}

	require.NoError(t, p.Settle(context.Background(), res))
	balanceAfterFirst := fs.users["w"].Balance
	require.NoError(t, p.Settle(context.Background(), res))
	require.Equal(t, balanceAfterFirst, fs.users["w"].Balance, "retried settlement must not double-pay")
}

func TestRefundReversesStakes(t *testing.T) {
	fs := newFakeStore()
	fs.users["p1"] = &store.User{ID: "p1", Balance: 1000}
	p := settlement.New(fs, testLog())
	require.NoError(t, p.CollectStakes(context.Background(), "game1", []string{"p1"}, 100))
	require.Equal(t, int64(900), fs.users["p1"].Balance)

	require.NoError(t, p.Refund(context.Background(), "game1", []string{"p1"}, 100, "room cancelled"))
	require.Equal(t, int64(1000), fs.users["p1"].Balance)
}

func TestSettleDeckExhaustedDrawRefundsInsteadOfPayingWinner(t *testing.T) {
	fs := newFakeStore()
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		fs.users[id] = &store.User{ID: id, Balance: 900, Elo: 1200}
	}
	p := settlement.New(fs, testLog())
	require.NoError(t, p.CollectStakes(context.Background(), "game1", []string{"p1", "p2", "p3", "p4"}, 100))

	res := settlement.GameResult{GameID: "game1", PlayerIDs: []string{"p1", "p2", "p3", "p4"}, WinnerID: "", TableStake: 100}
	require.NoError(t, p.Settle(context.Background(), res))

	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		require.Equal(t, int64(900), fs.users[id].Balance)
		require.Equal(t, 1200, fs.users[id].Elo, "a draw changes no one's rating")
	}
}
