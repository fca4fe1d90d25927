package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/swarmctl/internal/transport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func runRelay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serveRelay(ctx, relayAddr)
}

func serveRelay(ctx context.Context, addr string) error {
	relay := transport.NewRelay(transport.DefaultBuffer)
	mux := http.NewServeMux()
	mux.Handle("/relay", relay)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("swarmctl.relay listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		relay.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		relay.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-errCh
		log.Info().Int("peers", relay.Peers()).Msg("swarmctl.relay stopped")
		return err
	}
}
