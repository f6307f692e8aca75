// Package store defines the persistence port the settlement pipeline and
// leaderboard projection require, independent of any concrete database.
// Grounded on the teacher's Database interface (pkg/server/db.go),
// generalized from a single sqlite balance/transaction pair into the
// full User/GameHistory/ChipTransaction/UnitOfWork contract of spec.md §6.
package store

import "time"

// User is a seated account: chip balance plus ranking stats.
type User struct {
	ID          string
	Username    string
	DisplayName string
	Balance     int64
	Elo         int
	GamesPlayed int
	Wins        int
}

// TransactionType tags a ChipTransaction's reason, per spec.md §4.6.
type TransactionType int

const (
	TxGameStake TransactionType = iota
	TxGameWin
	TxGameLoss
	TxRefund
	TxDailyBonus
	TxLevelUpBonus
	TxReferralBonus
	TxPurchase
	TxGiftSent
	TxGiftReceived
	TxAdminAdjustment
)

func (t TransactionType) String() string {
	switch t {
	case TxGameStake:
		return "GameStake"
	case TxGameWin:
		return "GameWin"
	case TxGameLoss:
		return "GameLoss"
	case TxRefund:
		return "Refund"
	case TxDailyBonus:
		return "DailyBonus"
	case TxLevelUpBonus:
		return "LevelUpBonus"
	case TxReferralBonus:
		return "ReferralBonus"
	case TxPurchase:
		return "Purchase"
	case TxGiftSent:
		return "GiftSent"
	case TxGiftReceived:
		return "GiftReceived"
	case TxAdminAdjustment:
		return "AdminAdjustment"
	default:
		return "Unknown"
	}
}

// ChipTransaction is one balance-affecting ledger entry. IdempotencyKey
// carries a unique constraint at the store level: a duplicate insert
// attempt must be rejected so a retried settlement short-circuits as
// success instead of double-crediting or double-debiting. BalanceAfter
// must always equal BalanceBefore+Amount, per spec.md §3.
type ChipTransaction struct {
	ID              int64
	UserID          string
	GameHistoryID   string
	Amount          int64
	BalanceBefore   int64
	BalanceAfter    int64
	Description     string
	Type            TransactionType
	IdempotencyKey  string
	ReferenceNumber string
	CreatedAt       time.Time
}

// GameStatus is the persisted outcome of a GameHistory row.
type GameStatus int

const (
	GameInProgress GameStatus = iota
	GameFinished
	GameCancelled
)

// WinType selects the ELO multiplier a settlement applies, per spec.md
// §4.6.
type WinType int

const (
	WinNormal WinType = iota
	WinPairs
	WinOkeyDiscard
	WinDeckEmpty
)

func (w WinType) Multiplier() float64 {
	switch w {
	case WinPairs:
		return 1.5
	case WinOkeyDiscard:
		return 2.0
	case WinDeckEmpty:
		return 0.5
	default:
		return 1.0
	}
}

func (w WinType) String() string {
	switch w {
	case WinPairs:
		return "Pairs"
	case WinOkeyDiscard:
		return "OkeyDiscard"
	case WinDeckEmpty:
		return "DeckEmpty"
	default:
		return "Normal"
	}
}

// GameHistory is the durable record of one room's completed (or
// cancelled) game.
type GameHistory struct {
	ID         string
	RoomID     string
	PlayerIDs  []string
	WinnerID   string // empty for a cancelled/deck-exhausted draw
	WinType    WinType
	TableStake int64
	Status     GameStatus
	StartedAt  time.Time
	FinishedAt time.Time
}
