package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/fitlol-ingest/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + a.Cfg.Port
	a.Log.Info("Starting HTTP server", "addr", addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Run(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("Shutting down...")
		return a.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		a.Log.Error("Server exited with error", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Log.Info("Server stopped")
}
