package store

import "context"

// Users is the port the settlement pipeline and leaderboard reconciler
// use to read and mutate accounts, per spec.md §6's User repository.
type Users interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*User, error)
	Add(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	TopByElo(ctx context.Context, n int) ([]*User, error)
	EloRank(ctx context.Context, userID string) (int, error)
}

// GameHistories is the port over completed/cancelled game records.
type GameHistories interface {
	GetByID(ctx context.Context, id string) (*GameHistory, error)
	GetByRoomID(ctx context.Context, roomID string) ([]*GameHistory, error)
	Add(ctx context.Context, g *GameHistory) error
	Update(ctx context.Context, g *GameHistory) error
}

// ChipTransactions is the port over the append-only ledger, with a
// unique constraint on IdempotencyKey. store/postgres's Add surfaces a
// DuplicateIdempotency okerr.Error when the key already exists. The
// settlement pipeline looks each key up before writing and skips work
// already applied; an error from Add, DuplicateIdempotency included,
// is returned to the pipeline's caller as a failure.
type ChipTransactions interface {
	GetByID(ctx context.Context, id int64) (*ChipTransaction, error)
	GetByReferenceNumber(ctx context.Context, ref string) (*ChipTransaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*ChipTransaction, error)
	GetByGameHistoryID(ctx context.Context, gameHistoryID string) ([]*ChipTransaction, error)
	Add(ctx context.Context, t *ChipTransaction) error
	AddRange(ctx context.Context, ts []*ChipTransaction) error
}

// UnitOfWork is one atomic transaction boundary: every repository call
// made through its Users/GameHistories/ChipTransactions accessors is
// staged and only durable once Commit returns nil. Grounded on
// leanlp-BTC-coinjoin's pgx Begin/Exec/Commit shape
// (internal/db/postgres.go SaveAnalysisResult), generalized from one ad
// hoc transaction to a reusable boundary the settlement pipeline opens
// once per game.
type UnitOfWork interface {
	Users() Users
	GameHistories() GameHistories
	ChipTransactions() ChipTransactions
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store begins new units of work and exposes non-transactional access
// for paths that don't need one (e.g. leaderboard fallback queries).
// Mirrors UnitOfWork's accessor shape rather than embedding Users/
// GameHistories/ChipTransactions directly, since their GetByID methods
// collide on name with different return types.
type Store interface {
	Users() Users
	GameHistories() GameHistories
	ChipTransactions() ChipTransactions
	BeginTransaction(ctx context.Context) (UnitOfWork, error)
	Close() error
}

// Leaderboard is the sorted-set + hash port of spec.md §4.7.
type Leaderboard interface {
	SortedSetAdd(ctx context.Context, key, member string, score float64) error
	SortedSetRemove(ctx context.Context, key, member string) error
	// SortedSetRangeByRank returns members ranked start..stop (0-based,
	// inclusive), descending by score.
	SortedSetRangeByRank(ctx context.Context, key string, start, stop int) ([]Ranked, error)
	SortedSetRank(ctx context.Context, key, member string) (int, bool, error)
	SortedSetLength(ctx context.Context, key string) (int, error)
	HashSet(ctx context.Context, key, field string, value string) error
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
}

// Ranked is one member of a sorted-set range query.
type Ranked struct {
	Member string
	Score  float64
}
