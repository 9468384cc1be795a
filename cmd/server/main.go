package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/TorVallin/WebSockets-Workshop-Backend/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.Println("Starting chat backend...")

	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	registry := server.NewRegistry()
	router := server.NewRouter(registry)
	httpServer := server.CreateServer(config.Port, router)

	janitor, err := server.NewJanitor(registry, config.RoomSweepSchedule)
	if err != nil {
		log.Fatalf("Invalid room sweep schedule %q: %v", config.RoomSweepSchedule, err)
	}
	janitor.Start()
	defer janitor.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Println("Shutting down...")
		return server.ShutdownServer(httpServer, shutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped")
}
