package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/swarmctl/internal/core"
	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/transport"
)

var ErrInvalidConfig = errors.New("config: invalid robot config")

// AdminConfig controls the read-only HTTP surface. An empty Addr disables it.
type AdminConfig struct {
	Addr        string
	CorsOrigins []string
	Token       string
}

// EvictionConfig enables staleness eviction when TTL is positive.
type EvictionConfig struct {
	TTL   time.Duration
	Sweep time.Duration
}

// RobotConfig is the resolved configuration for one robot process.
type RobotConfig struct {
	RobotType int
	Core      core.Config
	Transport transport.Config
	Admin     AdminConfig
	Eviction  EvictionConfig
}

type fileConfig struct {
	RobotID                  int           `toml:"robot_id"`
	RobotType                int           `toml:"robot_type"`
	TotalRobotNumbers        int           `toml:"total_robot_numbers"`
	NeighborDistance         float64       `toml:"neighbor_distance"`
	PublishRobotBaseDuration string        `toml:"publish_robot_base_duration"`
	PublishSwarmListDuration string        `toml:"publish_swarm_list_duration"`
	BarrierCheckDuration     string        `toml:"barrier_check_duration"`
	OutboxFlushDuration      string        `toml:"outbox_flush_duration"`
	SendTimeout              string        `toml:"send_timeout"`
	Transport                fileTransport `toml:"transport"`
	Admin                    fileAdmin     `toml:"admin"`
	Eviction                 fileEviction  `toml:"eviction"`
}

type fileTransport struct {
	Name         string `toml:"name"`
	RedisAddr    string `toml:"redis_addr"`
	RedisChannel string `toml:"redis_channel"`
	RelayURL     string `toml:"relay_url"`
	Buffer       int    `toml:"buffer"`
}

type fileAdmin struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	Token       string   `toml:"token"`
}

type fileEviction struct {
	TTL   string `toml:"ttl"`
	Sweep string `toml:"sweep"`
}

func Default() RobotConfig {
	return RobotConfig{
		Core: core.DefaultConfig(),
		Transport: transport.Config{
			Name:         transport.NameMemory,
			RedisChannel: transport.DefaultRedisChannel,
			Buffer:       transport.DefaultBuffer,
			Backoff:      transport.DefaultBackoff(),
		},
		Admin: AdminConfig{Addr: "", CorsOrigins: []string{}},
		Eviction: EvictionConfig{
			Sweep: core.DefaultConfig().EvictionSweepDuration,
		},
	}
}

// Load reads path over Default, then validates.
func Load(path string) (RobotConfig, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return RobotConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return resolve(raw, meta)
}

// Parse is Load for in-memory TOML.
func Parse(data string) (RobotConfig, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return RobotConfig{}, fmt.Errorf("config parse failed: %w", err)
	}
	return resolve(raw, meta)
}

func resolve(raw fileConfig, meta toml.MetaData) (RobotConfig, error) {
	cfg := Default()

	if meta.IsDefined("robot_id") {
		cfg.Core.RobotID = raw.RobotID
	}
	if meta.IsDefined("robot_type") {
		cfg.RobotType = raw.RobotType
	}
	if meta.IsDefined("total_robot_numbers") {
		cfg.Core.TotalRobotNumbers = raw.TotalRobotNumbers
	}
	if meta.IsDefined("neighbor_distance") {
		cfg.Core.NeighborDistance = raw.NeighborDistance
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"publish_robot_base_duration", raw.PublishRobotBaseDuration, &cfg.Core.PublishRobotBaseDuration},
		{"publish_swarm_list_duration", raw.PublishSwarmListDuration, &cfg.Core.PublishSwarmListDuration},
		{"barrier_check_duration", raw.BarrierCheckDuration, &cfg.Core.BarrierCheckDuration},
		{"outbox_flush_duration", raw.OutboxFlushDuration, &cfg.Core.OutboxFlushDuration},
		{"send_timeout", raw.SendTimeout, &cfg.Core.SendTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return RobotConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if meta.IsDefined("transport", "name") {
		cfg.Transport.Name = strings.ToLower(strings.TrimSpace(raw.Transport.Name))
	}
	if meta.IsDefined("transport", "redis_addr") {
		cfg.Transport.RedisAddr = strings.TrimSpace(raw.Transport.RedisAddr)
	}
	if meta.IsDefined("transport", "redis_channel") {
		cfg.Transport.RedisChannel = strings.TrimSpace(raw.Transport.RedisChannel)
	}
	if meta.IsDefined("transport", "relay_url") {
		cfg.Transport.RelayURL = strings.TrimSpace(raw.Transport.RelayURL)
	}
	if meta.IsDefined("transport", "buffer") {
		cfg.Transport.Buffer = raw.Transport.Buffer
	}

	if meta.IsDefined("admin", "addr") {
		cfg.Admin.Addr = strings.TrimSpace(raw.Admin.Addr)
	}
	if meta.IsDefined("admin", "token") {
		cfg.Admin.Token = strings.TrimSpace(raw.Admin.Token)
	}
	if meta.IsDefined("admin", "cors_origins") {
		cfg.Admin.CorsOrigins = normalizeOrigins(raw.Admin.CorsOrigins)
	}

	if meta.IsDefined("eviction", "ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Eviction.TTL))
		if err != nil {
			return RobotConfig{}, fmt.Errorf("parse eviction.ttl: %w", err)
		}
		cfg.Eviction.TTL = d
	}
	if meta.IsDefined("eviction", "sweep") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Eviction.Sweep))
		if err != nil {
			return RobotConfig{}, fmt.Errorf("parse eviction.sweep: %w", err)
		}
		cfg.Eviction.Sweep = d
	}
	cfg.Core.EvictionSweepDuration = cfg.Eviction.Sweep

	if err := cfg.Validate(); err != nil {
		return RobotConfig{}, err
	}
	return cfg, nil
}

func (c RobotConfig) Validate() error {
	if err := c.Core.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch c.Transport.Name {
	case transport.NameMemory:
	case transport.NameRedis:
		if c.Transport.RedisAddr == "" {
			return fmt.Errorf("%w: transport.redis_addr is required for redis", ErrInvalidConfig)
		}
	case transport.NameWebSocket:
		if c.Transport.RelayURL == "" {
			return fmt.Errorf("%w: transport.relay_url is required for websocket", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidConfig, c.Transport.Name)
	}
	if c.Transport.Buffer < 0 {
		return fmt.Errorf("%w: transport.buffer must not be negative", ErrInvalidConfig)
	}
	if c.Eviction.TTL < 0 {
		return fmt.Errorf("%w: eviction.ttl must not be negative", ErrInvalidConfig)
	}
	return nil
}

// EvictionPolicy maps the eviction section onto a store policy.
func (c RobotConfig) EvictionPolicy() platform.EvictionPolicy {
	if c.Eviction.TTL <= 0 {
		return platform.NoEviction{}
	}
	return platform.StalenessEviction{TTL: c.Eviction.TTL}
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
