// Command okeysrv is the Okey room server entrypoint, grounded on the
// teacher's cmd/pokersrv/main.go: parse flags, open persistence, build
// a logging backend, construct the core, register gRPC services,
// listen, optionally write the chosen port to a file, serve forever.
package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/decred/slog"
	_ "github.com/mattn/go-sqlite3"
	"github.com/okeyrelay/core/pkg/config"
	"github.com/okeyrelay/core/pkg/connreg"
	"github.com/okeyrelay/core/pkg/leaderboard"
	"github.com/okeyrelay/core/pkg/obslog"
	"github.com/okeyrelay/core/pkg/room"
	"github.com/okeyrelay/core/pkg/settlement"
	"github.com/okeyrelay/core/store/postgres"
	"github.com/okeyrelay/core/transport/okeyrpc"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level := parseLevel(cfg.DebugLevel)
	logBackend := obslog.New(os.Stderr)
	newLogger := func(subsystem string) slog.Logger {
		l := logBackend.Logger(subsystem)
		obslog.SetLevel(l, level)
		return l
	}
	log := newLogger("OKEYSRV")

	ctx := context.Background()

	if cfg.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "a -postgres DSN (or OKEYSRV_POSTGRES_DSN) is required")
		os.Exit(1)
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to postgres: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.InitSchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init schema: %v\n", err)
		os.Exit(1)
	}

	lbStore := leaderboard.NewMemoryStore()
	proj := leaderboard.NewProjection(lbStore, db, newLogger("LEADERBOARD"))
	if err := proj.FullSyncFromStore(ctx, 100); err != nil {
		log.Warnf("initial leaderboard sync failed, will retry via reconciler: %v", err)
	}
	reconciler := leaderboard.NewReconciler(proj, cfg.LeaderboardSync, 100, newLogger("RECONCILER"))
	go reconciler.Run(ctx)

	pipe := settlement.New(db, newLogger("SETTLEMENT"))

	connReg := connreg.New()
	manager := room.NewManager(logBackend, connReg)
	hub := okeyrpc.NewHub(newLogger("HUB"))
	disp := okeyrpc.NewDispatcher(connReg, hub, pipe, proj, newLogger("DISPATCH"))
	rpcSrv := okeyrpc.NewServer(manager, connReg, hub, disp, newLogger("RPC"))

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to listen: %v\n", err)
		os.Exit(1)
	}

	grpcSrv := grpc.NewServer()
	okeyrpc.RegisterOkeyServiceServer(grpcSrv, rpcSrv)

	if cfg.PortFile != "" {
		_, p, _ := net.SplitHostPort(lis.Addr().String())
		_ = os.WriteFile(cfg.PortFile, []byte(p), 0o600)
	}

	log.Infof("listening on %s", lis.Addr())
	if err := grpcSrv.Serve(lis); err != nil {
		fmt.Fprintf(os.Stderr, "grpc serve error: %v\n", err)
		os.Exit(1)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return slog.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
