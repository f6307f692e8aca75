package okeyrpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/decred/slog"
	"github.com/google/uuid"
	"github.com/okeyrelay/core/pkg/connreg"
	"github.com/okeyrelay/core/pkg/okerr"
	"github.com/okeyrelay/core/pkg/room"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// ServiceName is the gRPC service path clients dial, grounded on the
// teacher's pokerrpc.LobbyService/PokerService naming.
const ServiceName = "okeyrpc.OkeyService"

// streamMethodName is the single bidi-streaming RPC this service
// exposes: spec.md §6's whole transport surface is one fan-out
// channel plus callback hooks, so one stream carries every intent
// and event rather than one RPC per intent (unlike the teacher's
// per-action unary RPCs, since Okey's per-room ordering guarantee
// (§5) is easiest to uphold over a single ordered stream per
// connection).
const streamMethodName = "Session"

// ServiceDesc is registered on a *grpc.Server via RegisterOkeyServiceServer,
// mirroring the teacher's generated pokerrpc.LobbyService_ServiceDesc
// shape but hand-built since there is no protoc-generated pb.go backing
// this service (see codec.go).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*sessionServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    streamMethodName,
			Handler:       sessionHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "okeyrpc.proto",
}

type sessionServer interface {
	Session(stream grpc.ServerStream) error
}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(sessionServer).Session(stream)
}

// Server implements sessionServer, translating each connection's
// intent stream into room.Manager/Dispatcher calls and pumping that
// connection's Hub queue back out, per spec.md §6's onConnect/
// onDisconnect/onIntent callback hooks.
type Server struct {
	manager *room.Manager
	connReg *connreg.Registry
	hub     *Hub
	disp    *Dispatcher
	log     slog.Logger
}

func NewServer(manager *room.Manager, connReg *connreg.Registry, hub *Hub, disp *Dispatcher, log slog.Logger) *Server {
	return &Server{manager: manager, connReg: connReg, hub: hub, disp: disp, log: log}
}

// RegisterOkeyServiceServer registers s on grpcSrv, mirroring the
// teacher's RegisterLobbyServiceServer/RegisterPokerServiceServer
// call sites in cmd/pokersrv/main.go.
func RegisterOkeyServiceServer(grpcSrv *grpc.Server, s *Server) {
	grpcSrv.RegisterService(&ServiceDesc, s)
}

// Session is the one long-lived bidi stream a client opens for its
// entire connection lifetime. The caller's player id is read once from
// the stream's "player-id" metadata (playerIDFromContext); the
// connection is tied to a room in connreg by its first CreateRoom or
// JoinRoom intent, and until then it is registered in the Hub only.
func (s *Server) Session(stream grpc.ServerStream) error {
	connID := "conn-" + uuid.NewString()
	outQueue := s.hub.register(connID)
	defer s.hub.unregister(connID)

	done := make(chan struct{})
	go s.pump(stream, outQueue, done)
	defer close(done)

	playerID := playerIDFromContext(stream.Context())
	for {
		in := &Intent{}
		if err := stream.RecvMsg(in); err != nil {
			if playerID != "" {
				s.onDisconnect(playerID, connID)
			}
			return err
		}
		s.onIntent(stream.Context(), playerID, connID, in)
	}
}

// playerIDFromContext reads the caller's identity from gRPC metadata.
// Account creation and authentication are explicitly out of scope
// (spec.md §1): whatever upstream auth layer terminates the session
// is trusted to have set this header after verifying the caller.
func playerIDFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("player-id")
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (s *Server) pump(stream grpc.ServerStream, out <-chan *Event, done <-chan struct{}) {
	for {
		select {
		case ev, ok := <-out:
			if !ok {
				return
			}
			if err := stream.SendMsg(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) onIntent(ctx context.Context, playerID, connID string, in *Intent) {
	if in.Type == IntentCreateRoom {
		r, err := s.manager.CreateRoom(ctx, in.Name, in.Stake, playerID, "")
		if err != nil {
			s.sendErr(connID, err)
			return
		}
		s.disp.Watch(r)
		s.hub.AddToGroup(connID, r.ID())
		s.connReg.Save(playerID, r.ID(), connID, time.Now())
		return
	}

	cmd, err := toCommand(playerID, connID, in)
	if err != nil {
		s.sendErr(connID, err)
		return
	}
	if m, ok := s.connReg.Lookup(playerID); ok && m.RoomID == in.RoomID && s.connReg.CanReconnect(playerID, time.Now()) {
		cmd.Type = room.CmdReconnect
	}

	r, ok := s.manager.Get(in.RoomID)
	if !ok {
		s.sendErr(connID, okerr.New(okerr.NotFound, "room not found"))
		return
	}

	if in.Type == IntentJoinRoom {
		s.hub.AddToGroup(connID, in.RoomID)
		s.connReg.Save(playerID, in.RoomID, connID, time.Now())
	}

	if in.Type == IntentStartGame || in.Type == IntentStartGameWithBots {
		humanIDs := humanPlayerIDs(r)
		if err := s.disp.pipe.CollectStakes(ctx, r.ID(), humanIDs, r.Summary().Stake); err != nil {
			s.sendErr(connID, err)
			return
		}
	}

	// StartGameWithBots fills every empty seat at the requested
	// difficulty before starting: room.CmdAddBots only seats bots, it
	// never transitions past Ready, so this intent is the one case
	// needing two commands submitted in sequence.
	if in.Type == IntentStartGameWithBots {
		fillCount := 4 - len(r.Summary().PlayerIDs)
		if fillCount > 0 {
			addCmd := room.Command{Type: room.CmdAddBots, PlayerID: playerID, BotCount: fillCount, BotDifficulty: cmd.BotDifficulty}
			if err := r.Submit(ctx, addCmd); err != nil {
				s.sendErr(connID, err)
				return
			}
		}
		cmd.Type = room.CmdStartGame
	}

	if err := r.Submit(ctx, *cmd); err != nil {
		s.sendErr(connID, err)
	}
}

func (s *Server) onDisconnect(playerID, connID string) {
	m, ok := s.connReg.Lookup(playerID)
	if !ok {
		return
	}
	s.connReg.MarkDisconnected(playerID, time.Now())
	if r, ok := s.manager.Get(m.RoomID); ok {
		_ = r.Submit(context.Background(), room.Command{Type: room.CmdDisconnect, PlayerID: playerID})
	}
}

func (s *Server) sendErr(connID string, err error) {
	s.hub.SendToConnection(connID, &Event{
		Type:      EventError,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

// humanPlayerIDs filters out bot seats (ided "bot-<uuid>" by
// pkg/room's handleStartGame/handleAddBots) since spec.md §4.6 stakes
// only humans.
func humanPlayerIDs(r *room.Room) []string {
	return filterHumanIDs(r.Summary().PlayerIDs)
}

func filterHumanIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id == "" || strings.HasPrefix(id, "bot-") {
			continue
		}
		out = append(out, id)
	}
	return out
}

func toCommand(playerID, connID string, in *Intent) (*room.Command, error) {
	cmd := &room.Command{PlayerID: playerID, ConnID: connID}
	switch in.Type {
	case IntentJoinRoom:
		cmd.Type = room.CmdJoinRoom
	case IntentLeaveRoom:
		cmd.Type = room.CmdLeaveRoom
	case IntentStartGame:
		cmd.Type = room.CmdStartGame
	case IntentStartGameWithBots:
		cmd.Type = room.CmdAddBots
		cmd.BotDifficulty = difficultyFromString(in.Difficulty)
	case IntentDrawTile:
		cmd.Type = room.CmdDrawFromDeck
	case IntentDrawFromDiscard:
		cmd.Type = room.CmdDrawFromDiscard
	case IntentThrowTile:
		cmd.Type = room.CmdDiscard
		cmd.TileID = in.TileID
	case IntentDeclareWin:
		cmd.Type = room.CmdDeclareWin
		cmd.TileID = in.TileID
	case IntentSetClientSeed:
		cmd.Type = room.CmdSetClientSeed
		cmd.ClientSeed = in.Seed
	default:
		return nil, fmt.Errorf("unknown intent %q", in.Type)
	}
	return cmd, nil
}

func difficultyFromString(d string) room.Difficulty {
	switch d {
	case "easy":
		return room.BotEasy
	case "hard":
		return room.BotHard
	case "expert":
		return room.BotExpert
	default:
		return room.BotNormal
	}
}
