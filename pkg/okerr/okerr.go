// Package okerr defines the typed, result-style error outcomes the room
// state machine and settlement pipeline surface instead of raw errors.
package okerr

import "fmt"

// Kind enumerates the error classes of §7: user-input errors, transient
// infrastructure errors, and fatal internal invariants.
type Kind int

const (
	NotFound Kind = iota
	InvalidPhase
	NotYourTurn
	TimeExpired
	InvalidAction
	InsufficientBalance
	DuplicateIdempotency
	PersistenceUnavailable
	ReconnectExpired
	FatalInvariant
	RoomFull
	GameAlreadyStarted
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case InvalidPhase:
		return "InvalidPhase"
	case NotYourTurn:
		return "NotYourTurn"
	case TimeExpired:
		return "TimeExpired"
	case InvalidAction:
		return "InvalidAction"
	case InsufficientBalance:
		return "InsufficientBalance"
	case DuplicateIdempotency:
		return "DuplicateIdempotency"
	case PersistenceUnavailable:
		return "PersistenceUnavailable"
	case ReconnectExpired:
		return "ReconnectExpired"
	case FatalInvariant:
		return "FatalInvariant"
	case RoomFull:
		return "RoomFull"
	case GameAlreadyStarted:
		return "GameAlreadyStarted"
	default:
		return "Unknown"
	}
}

// Error is the typed outcome returned by room and settlement operations.
// Room handlers return it as a value. A panic inside the room loop is
// not converted into an Error: the loop recovers it, logs it, and
// cancels the game with the panic text as the cancel cause.
type Error struct {
	Kind Kind
	Msg  string

	// CorrectPlayerID is populated for NotYourTurn.
	CorrectPlayerID string
	// PlayerID identifies the subject of InsufficientBalance / NotFound.
	PlayerID string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.String()
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func NotYourTurnErr(correctPlayerID string) *Error {
	return &Error{Kind: NotYourTurn, CorrectPlayerID: correctPlayerID, Msg: "not your turn"}
}

func InsufficientBalanceErr(playerID string) *Error {
	return &Error{Kind: InsufficientBalance, PlayerID: playerID, Msg: "insufficient chip balance"}
}
