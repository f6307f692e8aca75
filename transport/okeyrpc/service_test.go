package okeyrpc

import (
	"context"
	"testing"

	"github.com/okeyrelay/core/pkg/room"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestToCommandMapsEveryIntentType(t *testing.T) {
	cases := []struct {
		intent Intent
		want   room.CommandType
	}{
		{Intent{Type: IntentJoinRoom}, room.CmdJoinRoom},
		{Intent{Type: IntentLeaveRoom}, room.CmdLeaveRoom},
		{Intent{Type: IntentStartGame}, room.CmdStartGame},
		{Intent{Type: IntentStartGameWithBots, Difficulty: "hard"}, room.CmdAddBots},
		{Intent{Type: IntentDrawTile}, room.CmdDrawFromDeck},
		{Intent{Type: IntentDrawFromDiscard}, room.CmdDrawFromDiscard},
		{Intent{Type: IntentThrowTile, TileID: 7}, room.CmdDiscard},
		{Intent{Type: IntentDeclareWin, TileID: 9}, room.CmdDeclareWin},
		{Intent{Type: IntentSetClientSeed, Seed: "abc"}, room.CmdSetClientSeed},
	}
	for _, c := range cases {
		cmd, err := toCommand("p1", "conn1", &c.intent)
		require.NoError(t, err)
		require.Equal(t, c.want, cmd.Type)
		require.Equal(t, "p1", cmd.PlayerID)
		require.Equal(t, "conn1", cmd.ConnID)
	}
}

func TestToCommandCarriesTileIDAndSeed(t *testing.T) {
	cmd, err := toCommand("p1", "conn1", &Intent{Type: IntentThrowTile, TileID: 42})
	require.NoError(t, err)
	require.Equal(t, 42, cmd.TileID)

	cmd, err = toCommand("p1", "conn1", &Intent{Type: IntentSetClientSeed, Seed: "seed-1"})
	require.NoError(t, err)
	require.Equal(t, "seed-1", cmd.ClientSeed)
}

func TestToCommandRejectsUnknownIntent(t *testing.T) {
	_, err := toCommand("p1", "conn1", &Intent{Type: "bogus"})
	require.Error(t, err)
}

func TestDifficultyFromString(t *testing.T) {
	require.Equal(t, room.BotEasy, difficultyFromString("easy"))
	require.Equal(t, room.BotHard, difficultyFromString("hard"))
	require.Equal(t, room.BotExpert, difficultyFromString("expert"))
	require.Equal(t, room.BotNormal, difficultyFromString("normal"))
	require.Equal(t, room.BotNormal, difficultyFromString(""))
}

func TestHumanPlayerIDsFiltersBotsAndEmptySeats(t *testing.T) {
	ids := filterHumanIDs([]string{"p1", "", "bot-abc", "p2"})
	require.Equal(t, []string{"p1", "p2"}, ids)
}

func TestPlayerIDFromContextReadsMetadata(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("player-id", "p1"))
	require.Equal(t, "p1", playerIDFromContext(ctx))
}

func TestPlayerIDFromContextMissingMetadataReturnsEmpty(t *testing.T) {
	require.Equal(t, "", playerIDFromContext(context.Background()))
}
