// Lens server - runs the magnifier, colour inspector and region filter behind
// WebSocket, REST and gRPC transports
package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/chromalens/platform/internal/config"
	"github.com/chromalens/platform/internal/orchestrator"
	"github.com/chromalens/platform/internal/prefs"
	"github.com/chromalens/platform/internal/rpc"
	"github.com/chromalens/platform/internal/scheduler"
	"github.com/chromalens/platform/internal/screen"
	"github.com/chromalens/platform/internal/server"
	"github.com/chromalens/platform/internal/surface"
)

const terminalLogFile = "chromalens.log"

func main() {
	cfg := config.Load()

	// tcell owns the tty in terminal mode, so logs go to a file
	var logOut io.Writer = os.Stdout
	if cfg.TerminalLens {
		f, err := os.OpenFile(terminalLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			slog.Error("failed to open log file", "path", terminalLogFile, "error", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	provider, err := newProvider(cfg)
	if err != nil {
		slog.Error("failed to set up capture source", "source", cfg.CaptureSource, "error", err)
		os.Exit(1)
	}

	store, err := prefs.Open(cfg.PrefsPath)
	if err != nil {
		slog.Error("failed to open preferences", "path", cfg.PrefsPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	deps := orchestrator.Deps{
		Provider:  provider,
		Scheduler: scheduler.NewTicker(cfg.FrameInterval()),
		Prefs:     store,
	}
	if cfg.TerminalLens {
		scr, err := tcell.NewScreen()
		if err == nil {
			err = scr.Init()
		}
		if err != nil {
			slog.Error("failed to open terminal", "error", err)
			os.Exit(1)
		}
		defer scr.Fini()
		go watchTerminal(scr, sigCh)
		deps.ExtraSurface = func(w, h int) surface.Target { return surface.NewTerminal(scr, w, h) }
	}

	orch := orchestrator.New(cfg, deps)
	srv := server.New(orch, cfg)
	grpcSrv := rpc.NewServer(rpc.NewService(orch))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		slog.Error("orchestrator start error", "error", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("lens server starting", "http", cfg.HTTPAddr, "grpc", cfg.GRPCAddr, "source", cfg.CaptureSource)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		slog.Error("failed to listen for grpc", "addr", cfg.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("grpc server error", "error", err)
		}
	}()

	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	grpcSrv.Stop()
	srv.Close()

	orch.Stop()
	slog.Info("shutdown complete")
}

func newProvider(cfg *config.Config) (screen.Provider, error) {
	if cfg.CaptureSource == "file" {
		return screen.LoadImageFile(cfg.CaptureFile)
	}
	return screen.NewProvider(), nil
}

// watchTerminal turns Ctrl-C, Esc or q in the terminal lens into a shutdown.
func watchTerminal(scr tcell.Screen, sigCh chan<- os.Signal) {
	for {
		switch ev := scr.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyCtrlC || ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
				sigCh <- syscall.SIGTERM
				return
			}
		case *tcell.EventResize:
			scr.Sync()
		}
	}
}
