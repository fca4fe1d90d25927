package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/swarmctl/internal/transport"
)

var (
	ErrInvalidRobotID      = errors.New("core: invalid robot id")
	ErrInvalidFleetSize    = errors.New("core: total robot numbers must be positive")
	ErrInvalidDuration     = errors.New("core: durations must be positive")
	ErrRobotIDMismatch     = errors.New("core: store robot id does not match config")
	ErrNilCollaborator     = errors.New("core: store, transport, and parser are required")
	ErrAlreadyRunning      = errors.New("core: already running")
	ErrBarrierReset        = errors.New("core: barrier reset before crossing")
	ErrInvalidListenKey    = errors.New("core: invalid listen key")
	ErrInvalidStigmergyID  = errors.New("core: invalid virtual stigmergy id")
	ErrEmptyStigmergyKey   = errors.New("core: empty virtual stigmergy key")
	ErrInvalidNeighborDist = errors.New("core: neighbor distance must not be negative")
)

// Config holds the fleet parameters and loop periods. It is immutable
// once the Core is built; only the neighbor distance can change later,
// through the store.
type Config struct {
	RobotID                  int
	TotalRobotNumbers        int
	NeighborDistance         float64
	PublishRobotBaseDuration time.Duration
	PublishSwarmListDuration time.Duration
	BarrierCheckDuration     time.Duration
	OutboxFlushDuration      time.Duration
	EvictionSweepDuration    time.Duration
	SendTimeout              time.Duration
	ReceiveBackoff           transport.BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		RobotID:                  0,
		TotalRobotNumbers:        1,
		NeighborDistance:         10,
		PublishRobotBaseDuration: 100 * time.Millisecond,
		PublishSwarmListDuration: 1 * time.Second,
		BarrierCheckDuration:     100 * time.Millisecond,
		OutboxFlushDuration:      50 * time.Millisecond,
		EvictionSweepDuration:    1 * time.Second,
		SendTimeout:              500 * time.Millisecond,
		ReceiveBackoff:           transport.DefaultBackoff(),
	}
}

// WithDefaults fills zero durations from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.PublishRobotBaseDuration == 0 {
		c.PublishRobotBaseDuration = d.PublishRobotBaseDuration
	}
	if c.PublishSwarmListDuration == 0 {
		c.PublishSwarmListDuration = d.PublishSwarmListDuration
	}
	if c.BarrierCheckDuration == 0 {
		c.BarrierCheckDuration = d.BarrierCheckDuration
	}
	if c.OutboxFlushDuration == 0 {
		c.OutboxFlushDuration = d.OutboxFlushDuration
	}
	if c.EvictionSweepDuration == 0 {
		c.EvictionSweepDuration = d.EvictionSweepDuration
	}
	if c.SendTimeout == 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.ReceiveBackoff.InitialDelay == 0 {
		c.ReceiveBackoff = d.ReceiveBackoff
	}
	return c
}

func (c Config) Validate() error {
	if c.RobotID < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRobotID, c.RobotID)
	}
	if c.TotalRobotNumbers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFleetSize, c.TotalRobotNumbers)
	}
	if c.NeighborDistance < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidNeighborDist, c.NeighborDistance)
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"publish_robot_base_duration", c.PublishRobotBaseDuration},
		{"publish_swarm_list_duration", c.PublishSwarmListDuration},
		{"barrier_check_duration", c.BarrierCheckDuration},
		{"outbox_flush_duration", c.OutboxFlushDuration},
		{"eviction_sweep_duration", c.EvictionSweepDuration},
		{"send_timeout", c.SendTimeout},
	}
	for _, item := range durations {
		if item.d <= 0 {
			return fmt.Errorf("%w: %s=%s", ErrInvalidDuration, item.name, item.d)
		}
	}
	return nil
}
