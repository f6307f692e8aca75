// Package settlement runs the stake-collection, payout, and ELO
// pipeline of spec.md §4.6 against the store.Store persistence port,
// grounded on the teacher's balance-mutation/transaction-recording
// flow (pkg/server/db.go UpdatePlayerBalance) generalized from a single
// DCR-balance mutation into the full stake/rake/payout/ELO sequence,
// and on leanlp-BTC-coinjoin's pgx transactional shape
// (internal/db/postgres.go) for the unit-of-work boundary itself.
package settlement

import (
	"context"
	"fmt"

	"github.com/decred/slog"
	"github.com/okeyrelay/core/pkg/okerr"
	"github.com/okeyrelay/core/store"
)

// rakeRate and rakeCap implement spec.md §4.6's
// "rake = min(totalPot * 5%, 10_000)".
const (
	rakeRate = 0.05
	rakeCap  = 10_000
)

// GameResult is the settlement pipeline's own input shape, decoupled
// from pkg/room's GameHistoryRecord so this package doesn't import the
// room state machine. The wiring layer translates one into the other.
type GameResult struct {
	GameID     string
	RoomID     string
	PlayerIDs  []string // all four seated players, winner included
	WinnerID   string   // empty for a deck-exhausted draw
	WinType    store.WinType
	TableStake int64
}

// Pipeline is the settlement boundary: one instance is safe to share
// across rooms, since every mutation it performs opens its own
// store.UnitOfWork.
type Pipeline struct {
	db  store.Store
	log slog.Logger
}

func New(db store.Store, log slog.Logger) *Pipeline {
	return &Pipeline{db: db, log: log}
}

// Store exposes the pipeline's backing persistence port so callers
// that need a read-only lookup outside a settlement step (the
// leaderboard sync after a commit) don't need their own store.Store
// reference threaded through separately.
func (p *Pipeline) Store() store.Store { return p.db }

// CollectStakes runs spec.md §4.6's stake-collection step: a separate,
// earlier atomic debit at game start. Bots never stake. On any
// insufficient balance the whole collection is rolled back; the
// caller (Server.onIntent) then reports the error and does not submit
// the start command, so the room stays unstarted.
func (p *Pipeline) CollectStakes(ctx context.Context, gameID string, humanPlayerIDs []string, tableStake int64) error {
	uow, err := p.db.BeginTransaction(ctx)
	if err != nil {
		return okerr.New(okerr.PersistenceUnavailable, err.Error())
	}
	defer func() { _ = uow.Rollback(ctx) }()

	for _, playerID := range humanPlayerIDs {
		user, err := uow.Users().GetByID(ctx, playerID)
		if err != nil {
			return okerr.New(okerr.NotFound, fmt.Sprintf("user %s: %v", playerID, err))
		}
		if user.Balance < tableStake {
			return okerr.InsufficientBalanceErr(playerID)
		}

		key := stakeIdempotencyKey(gameID, playerID)
		if existing, _ := uow.ChipTransactions().GetByIdempotencyKey(ctx, key); existing != nil {
			continue // already collected by a previous attempt
		}

		before := user.Balance
		user.Balance -= tableStake
		if err := uow.Users().Update(ctx, user); err != nil {
			return err
		}
		if err := uow.ChipTransactions().Add(ctx, &store.ChipTransaction{
			UserID:         playerID,
			GameHistoryID:  gameID,
			Amount:         -tableStake,
			BalanceBefore:  before,
			BalanceAfter:   user.Balance,
			Description:    fmt.Sprintf("stake collected for game %s", gameID),
			Type:           store.TxGameStake,
			IdempotencyKey: key,
		}); err != nil {
			return err
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return okerr.New(okerr.PersistenceUnavailable, err.Error())
	}
	p.log.Infof("collected stakes for game %s: %d players at %d", gameID, len(humanPlayerIDs), tableStake)
	return nil
}

// Settle runs spec.md §4.6's five-step payout, all inside one
// transaction, idempotent on retry via the unique idempotency-key
// constraint on ChipTransaction: a duplicate attempt after a partial
// prior success short-circuits as success rather than double-paying.
//
// A deck-exhausted draw (res.WinnerID == "") has no winner to pay out
// of the pot, so it is settled as a stake refund instead of a
// win/loss/ELO sequence — see DESIGN.md's Open Question decision for
// why spec.md §4.6's literal winner-centric steps don't apply here.
func (p *Pipeline) Settle(ctx context.Context, res GameResult) error {
	if res.WinnerID == "" {
		return p.Refund(ctx, res.GameID, res.PlayerIDs, res.TableStake, "deck-exhausted draw")
	}

	uow, err := p.db.BeginTransaction(ctx)
	if err != nil {
		return okerr.New(okerr.PersistenceUnavailable, err.Error())
	}
	defer func() { _ = uow.Rollback(ctx) }()

	users := make(map[string]*store.User, len(res.PlayerIDs))
	all, err := uow.Users().GetByIDs(ctx, res.PlayerIDs)
	if err != nil {
		return okerr.New(okerr.PersistenceUnavailable, err.Error())
	}
	for _, u := range all {
		users[u.ID] = u
	}
	for _, id := range res.PlayerIDs {
		if users[id] == nil {
			return okerr.New(okerr.NotFound, fmt.Sprintf("user %s missing at settlement", id))
		}
	}

	winKey := winIdempotencyKey(res.GameID, res.WinnerID)
	if existing, _ := uow.ChipTransactions().GetByIdempotencyKey(ctx, winKey); existing != nil {
		p.log.Infof("settlement %s already applied, short-circuiting", res.GameID)
		return nil
	}

	totalPot := res.TableStake * 4
	rake := int64(float64(totalPot) * rakeRate)
	if rake > rakeCap {
		rake = rakeCap
	}
	winnerPayout := totalPot - rake

	var loserIDs []string
	for _, id := range res.PlayerIDs {
		if id != res.WinnerID {
			loserIDs = append(loserIDs, id)
		}
	}

	loserElos := make([]int, len(loserIDs))
	loserGames := make([]int, len(loserIDs))
	for i, id := range loserIDs {
		loserElos[i] = users[id].Elo
		loserGames[i] = users[id].GamesPlayed
	}
	winner := users[res.WinnerID]
	winnerDelta, loserDeltas := pairwiseElo(winner.Elo, winner.GamesPlayed, loserElos, loserGames, res.WinType.Multiplier())

	// winnerNet is the winner's profit for this game net of their own
	// stake (already debited by a prior CollectStakes transaction); the
	// winner's balance here must be credited the gross payout, since
	// crediting only winnerNet would double-subtract the stake and
	// break chip conservation (Σ balance-deltas + rake == 0).
	winnerNet := winnerPayout - res.TableStake
	winnerBefore := winner.Balance
	winner.Balance += winnerPayout
	winner.Elo = applyEloFloor(winner.Elo, winnerDelta)
	winner.GamesPlayed++
	winner.Wins++
	if err := uow.Users().Update(ctx, winner); err != nil {
		return err
	}
	if err := uow.ChipTransactions().Add(ctx, &store.ChipTransaction{
		UserID:         res.WinnerID,
		GameHistoryID:  res.GameID,
		Amount:         winnerPayout,
		BalanceBefore:  winnerBefore,
		BalanceAfter:   winner.Balance,
		Description:    fmt.Sprintf("game win, pot %d minus rake %d (net of stake: %d)", totalPot, rake, winnerNet),
		Type:           store.TxGameWin,
		IdempotencyKey: winKey,
	}); err != nil {
		return err
	}

	for i, id := range loserIDs {
		loser := users[id]
		loser.Elo = applyEloFloor(loser.Elo, loserDeltas[i])
		loser.GamesPlayed++
		if err := uow.Users().Update(ctx, loser); err != nil {
			return err
		}
		if err := uow.ChipTransactions().Add(ctx, &store.ChipTransaction{
			UserID:         id,
			GameHistoryID:  res.GameID,
			Amount:         0,
			BalanceBefore:  loser.Balance,
			BalanceAfter:   loser.Balance,
			Description:    fmt.Sprintf("game loss, stake %d forfeited to pot", res.TableStake),
			Type:           store.TxGameLoss,
			IdempotencyKey: lossIdempotencyKey(res.GameID, id),
		}); err != nil {
			return err
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return okerr.New(okerr.PersistenceUnavailable, err.Error())
	}
	p.log.Infof("settled game %s: winner %s net %d, rake %d", res.GameID, res.WinnerID, winnerNet, rake)
	return nil
}

// Refund reverses every GameStake transaction for gameID, per spec.md
// §4.6's "Refund (on Cancelled after collection)" step. cause is
// recorded on each ChipTransaction's Description.
func (p *Pipeline) Refund(ctx context.Context, gameID string, playerIDs []string, tableStake int64, cause string) error {
	uow, err := p.db.BeginTransaction(ctx)
	if err != nil {
		return okerr.New(okerr.PersistenceUnavailable, err.Error())
	}
	defer func() { _ = uow.Rollback(ctx) }()

	for _, playerID := range playerIDs {
		stakeKey := stakeIdempotencyKey(gameID, playerID)
		stakeTx, err := uow.ChipTransactions().GetByIdempotencyKey(ctx, stakeKey)
		if err != nil || stakeTx == nil {
			continue // this player (e.g. a bot) never staked
		}

		refundKey := refundIdempotencyKey(gameID, playerID)
		if existing, _ := uow.ChipTransactions().GetByIdempotencyKey(ctx, refundKey); existing != nil {
			continue // already refunded by a previous attempt
		}

		user, err := uow.Users().GetByID(ctx, playerID)
		if err != nil {
			return okerr.New(okerr.NotFound, fmt.Sprintf("user %s: %v", playerID, err))
		}
		before := user.Balance
		user.Balance += tableStake
		if err := uow.Users().Update(ctx, user); err != nil {
			return err
		}
		if err := uow.ChipTransactions().Add(ctx, &store.ChipTransaction{
			UserID:         playerID,
			GameHistoryID:  gameID,
			Amount:         tableStake,
			BalanceBefore:  before,
			BalanceAfter:   user.Balance,
			Description:    fmt.Sprintf("stake refund: %s", cause),
			Type:           store.TxRefund,
			IdempotencyKey: refundKey,
		}); err != nil {
			return err
		}
	}

	if err := uow.Commit(ctx); err != nil {
		return okerr.New(okerr.PersistenceUnavailable, err.Error())
	}
	p.log.Infof("refunded game %s (%s)", gameID, cause)
	return nil
}

func stakeIdempotencyKey(gameID, userID string) string {
	return fmt.Sprintf("game-stake-%s-%s", gameID, userID)
}

func winIdempotencyKey(gameID, userID string) string {
	return fmt.Sprintf("game-win-%s-%s", gameID, userID)
}

func lossIdempotencyKey(gameID, userID string) string {
	return fmt.Sprintf("game-loss-%s-%s", gameID, userID)
}

// refundIdempotencyKey matches spec.md §4.6's literal key format.
func refundIdempotencyKey(gameID, userID string) string {
	return fmt.Sprintf("game-refund-%s-%s", gameID, userID)
}
