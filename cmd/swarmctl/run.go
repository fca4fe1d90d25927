package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/danmuck/swarmctl/internal/admin"
	"github.com/danmuck/swarmctl/internal/config"
	"github.com/danmuck/swarmctl/internal/core"
	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/protocol"
	"github.com/danmuck/swarmctl/internal/protocol/frame"
	"github.com/danmuck/swarmctl/internal/transport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runRobot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runConfigured(ctx, cfg)
}

// runConfigured runs one robot and its optional admin server until ctx ends.
func runConfigured(ctx context.Context, cfg config.RobotConfig) error {
	store := platform.New(cfg.Core.RobotID)
	store.SetRobotType(cfg.RobotType)

	tcfg := cfg.Transport
	if tcfg.Name == transport.NameMemory && tcfg.Hub == nil {
		// A lone process has nobody else on the hub; useful for smoke runs.
		tcfg.Hub = transport.NewHub(tcfg.Buffer)
	}
	tr, err := transport.Open(ctx, tcfg)
	if err != nil {
		return err
	}

	c, err := core.New(cfg.Core, store, tr, protocol.NewFrameParser(frame.DefaultLimits()), core.WithEviction(cfg.EvictionPolicy()))
	if err != nil {
		_ = tr.Close()
		return err
	}
	defer c.Close()

	log.Info().
		Int("robot", cfg.Core.RobotID).
		Str("transport", tcfg.Name).
		Str("admin", cfg.Admin.Addr).
		Msg("swarmctl.run starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Run(gctx)
	})
	if cfg.Admin.Addr != "" {
		srv := admin.New(store, admin.Config{
			Addr:              cfg.Admin.Addr,
			CorsOrigins:       cfg.Admin.CorsOrigins,
			TotalRobotNumbers: cfg.Core.TotalRobotNumbers,
			Token:             cfg.Admin.Token,
		})
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}
	err = g.Wait()
	log.Info().Err(err).Msg("swarmctl.run stopped")
	return err
}
