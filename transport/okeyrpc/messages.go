// Package okeyrpc is the concrete binding of spec.md §6's transport
// port: a gRPC bidirectional stream carrying the stable intent/event
// names over a JSON envelope, grounded on the teacher's pokerrpc
// service shape (pkg/server, RegisterLobbyServiceServer /
// RegisterPokerServiceServer) and on lox-pokerforbots's tagged,
// flat message structs (other_examples/...messages.go.go: one Type
// discriminator field per struct, JSON/msg-tagged payload fields).
// Hand-authored rather than protoc-generated: the wire framing itself
// is the one piece spec.md explicitly leaves to the transport, so a
// JSON envelope over grpc's raw byte streaming satisfies the port
// without binding callers to a particular IDL toolchain.
package okeyrpc

import "time"

// IntentType names one of spec.md §6's stable inbound intents.
type IntentType string

const (
	IntentCreateRoom          IntentType = "CreateRoom"
	IntentJoinRoom            IntentType = "JoinRoom"
	IntentLeaveRoom           IntentType = "LeaveRoom"
	IntentStartGame           IntentType = "StartGame"
	IntentStartGameWithBots   IntentType = "StartGameWithBots"
	IntentDrawTile            IntentType = "DrawTile"
	IntentDrawFromDiscard     IntentType = "DrawFromDiscard"
	IntentThrowTile           IntentType = "ThrowTile"
	IntentDeclareWin          IntentType = "DeclareWin"
	IntentSetClientSeed       IntentType = "SetClientSeed"
)

// Intent is one inbound client message, carried as the bidi stream's
// request frame. Only the fields relevant to Type are populated.
type Intent struct {
	Type IntentType `json:"type"`

	RoomID string `json:"roomId,omitempty"`
	Name   string `json:"name,omitempty"`
	Stake  int64  `json:"stake,omitempty"`

	Difficulty string `json:"difficulty,omitempty"`
	TileID     int    `json:"tileId,omitempty"`
	Seed       string `json:"seed,omitempty"`
}

// EventType names one of spec.md §6's stable outbound event names.
type EventType string

const (
	EventRoomJoined           EventType = "RoomJoined"
	EventPlayerJoined         EventType = "OnPlayerJoined"
	EventPlayerLeft           EventType = "OnPlayerLeft"
	EventGameStarted          EventType = "OnGameStarted"
	EventGameStateUpdated     EventType = "OnGameStateUpdated"
	EventTileDrawn            EventType = "OnTileDrawn"
	EventOpponentDrewTile     EventType = "OnOpponentDrewTile"
	EventTileDiscarded        EventType = "OnTileDiscarded"
	EventDeckUpdated          EventType = "OnDeckUpdated"
	EventTurnChanged          EventType = "OnTurnChanged"
	EventTurnTimerTick        EventType = "OnTurnTimerTick"
	EventAutoPlayTriggered    EventType = "OnAutoPlayTriggered"
	EventPlayerTimeout        EventType = "OnPlayerTimeout"
	EventGamePhaseChanged     EventType = "OnGamePhaseChanged"
	EventPlayerDisconnected   EventType = "OnPlayerDisconnected"
	EventPlayerReconnected    EventType = "OnPlayerReconnected"
	EventReconnected          EventType = "OnReconnected"
	EventRoomLeft             EventType = "OnRoomLeft"
	EventError                EventType = "OnError"
)

// Event is one outbound server message, carried as the bidi stream's
// response frame. A single flat struct keeps the JSON envelope
// schema-stable across every event kind; unused fields are omitted.
type Event struct {
	Type EventType `json:"type"`

	RoomID              string    `json:"roomId,omitempty"`
	Name                string    `json:"name,omitempty"`
	Stake               int64     `json:"stake,omitempty"`
	CurrentPlayerCount  int       `json:"currentPlayerCount,omitempty"`
	MaxPlayers          int       `json:"maxPlayers,omitempty"`
	IsGameStarted       bool      `json:"isGameStarted,omitempty"`

	PlayerID   string `json:"playerId,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
	Position   int    `json:"position,omitempty"`

	TotalPlayers int `json:"totalPlayers,omitempty"`

	InitialState    string `json:"initialState,omitempty"`
	ServerSeedHash  string `json:"serverSeedHash,omitempty"`
	GameState       any    `json:"gameState,omitempty"`

	Tile             any  `json:"tile,omitempty"`
	FromDiscard      bool `json:"fromDiscard,omitempty"`
	TileID           int  `json:"tileId,omitempty"`
	NextTurnPlayerID string `json:"nextTurnPlayerId,omitempty"`
	NextTurnPosition int    `json:"nextTurnPosition,omitempty"`

	RemainingTileCount int `json:"remainingTileCount,omitempty"`
	DiscardPileCount   int `json:"discardPileCount,omitempty"`

	TimeLeft  int    `json:"timeLeft,omitempty"`
	TurnNumber int   `json:"turnNumber,omitempty"`
	TurnPhase string `json:"turnPhase,omitempty"`
	IsCritical bool  `json:"isCritical,omitempty"`

	Reason string `json:"reason,omitempty"`

	OldPhase string `json:"oldPhase,omitempty"`
	NewPhase string `json:"newPhase,omitempty"`

	ReconnectionTimeoutSeconds int `json:"reconnectionTimeoutSeconds,omitempty"`

	Message string `json:"message,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
