package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/danmuck/swarmctl/internal/core"
	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/protocol"
	"github.com/danmuck/swarmctl/internal/protocol/frame"
	"github.com/danmuck/swarmctl/internal/transport"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	simSwarmID     = 1
	simStigmergyID = 1
	simLeaderKey   = "leader"
)

type simOptions struct {
	Robots   int
	Distance float64
	Timeout  time.Duration
}

// simReport is what one robot ended the run with.
type simReport struct {
	Robot     int
	Neighbors int
	Members   []int
	Leader    string
	Round     uint64
}

func runSim(cmd *cobra.Command, args []string) error {
	reports, err := simulate(cmd.Context(), simOptions{
		Robots:   simRobots,
		Distance: simDistance,
		Timeout:  simTimeout,
	})
	if err != nil {
		return err
	}
	for _, r := range reports {
		log.Info().
			Int("robot", r.Robot).
			Int("neighbors", r.Neighbors).
			Ints("swarm_members", r.Members).
			Str("leader", r.Leader).
			Uint64("round", r.Round).
			Msg("swarmctl.sim robot")
	}
	return nil
}

func simConfig(id int, opts simOptions) core.Config {
	cfg := core.DefaultConfig()
	cfg.RobotID = id
	cfg.TotalRobotNumbers = opts.Robots
	cfg.NeighborDistance = opts.Distance
	cfg.PublishRobotBaseDuration = 20 * time.Millisecond
	cfg.PublishSwarmListDuration = 50 * time.Millisecond
	cfg.BarrierCheckDuration = 20 * time.Millisecond
	cfg.OutboxFlushDuration = 10 * time.Millisecond
	return cfg
}

// simulate places robots 1..N on a line one unit apart, joins them to one
// swarm, has robot 1 publish a leader tuple, and waits for every robot to
// cross one barrier and hold the tuple.
func simulate(ctx context.Context, opts simOptions) ([]simReport, error) {
	if opts.Robots <= 0 {
		return nil, fmt.Errorf("%w: %d", core.ErrInvalidFleetSize, opts.Robots)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	hub := transport.NewHub(transport.DefaultBuffer)
	cores := make([]*core.Core, 0, opts.Robots)
	defer func() {
		for _, c := range cores {
			_ = c.Close()
		}
	}()
	for id := 1; id <= opts.Robots; id++ {
		store := platform.New(id)
		store.SetRobotBase(platform.Base{X: float64(id)})
		c, err := core.New(simConfig(id, opts), store, hub.Join(), protocol.NewFrameParser(frame.DefaultLimits()))
		if err != nil {
			return nil, err
		}
		cores = append(cores, c)
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	var runs errgroup.Group
	for _, c := range cores {
		runs.Go(func() error { return c.Run(runCtx) })
	}
	defer func() {
		stopRun()
		_ = runs.Wait()
	}()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	spaces := make([]*core.VirtualStigmergy, len(cores))
	for i, c := range cores {
		c.JoinSwarm(simSwarmID)
		vs, err := c.VirtualStigmergy(simStigmergyID)
		if err != nil {
			return nil, err
		}
		spaces[i] = vs
	}
	if err := spaces[0].Put(simLeaderKey, strconv.Itoa(cores[0].RobotID())); err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range cores {
		g.Go(func() error { return c.Barrier(gctx) })
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sim barrier: %w", err)
	}

	if err := waitForLeader(ctx, spaces); err != nil {
		return nil, err
	}

	reports := make([]simReport, 0, len(cores))
	for i, c := range cores {
		store := c.Store()
		tuple, _, _ := spaces[i].Get(simLeaderKey)
		reports = append(reports, simReport{
			Robot:     c.RobotID(),
			Neighbors: len(store.NeighborsWithin(store.NeighborDistance())),
			Members:   c.SwarmMembers(simSwarmID),
			Leader:    tuple.Value,
			Round:     store.BarrierRound(),
		})
		log.Debug().
			Str("base", store.DumpRobotBase()).
			Str("neighbors", store.DumpNeighbors()).
			Str("stigmergy", store.DumpVirtualStigmergy()).
			Msg("swarmctl.sim dump")
	}
	return reports, nil
}

func waitForLeader(ctx context.Context, spaces []*core.VirtualStigmergy) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		missing := 0
		for _, vs := range spaces {
			snap, err := vs.Snapshot()
			if err != nil {
				return err
			}
			if _, ok := snap[simLeaderKey]; !ok {
				missing++
			}
		}
		if missing == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("sim: %d robots never saw %q: %w", missing, simLeaderKey, ctx.Err())
		case <-ticker.C:
		}
	}
}
