package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindRobot = "robot"
	KindRedis = "redis"
	KindRelay = "relay"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindRobot:
		return robotTemplate, nil
	case KindRedis:
		return redisTemplate, nil
	case KindRelay:
		return relayTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const robotTemplate = `robot_id = 1
robot_type = 0
total_robot_numbers = 3
neighbor_distance = 10.0
publish_robot_base_duration = "100ms"
publish_swarm_list_duration = "1s"
barrier_check_duration = "100ms"
outbox_flush_duration = "50ms"
send_timeout = "500ms"

[transport]
name = "memory"
buffer = 256

[admin]
addr = "127.0.0.1:7400"
cors_origins = ["http://localhost:3000"]
token = ""

[eviction]
ttl = "0s"
sweep = "1s"
`

const redisTemplate = `robot_id = 1
total_robot_numbers = 3
neighbor_distance = 10.0

[transport]
name = "redis"
redis_addr = "127.0.0.1:6379"
redis_channel = "swarmctl:broadcast"
buffer = 256

[admin]
addr = "127.0.0.1:7400"

[eviction]
ttl = "5s"
sweep = "1s"
`

const relayTemplate = `robot_id = 1
total_robot_numbers = 3
neighbor_distance = 10.0

[transport]
name = "websocket"
relay_url = "ws://127.0.0.1:7500/relay"
buffer = 256

[admin]
addr = "127.0.0.1:7400"

[eviction]
ttl = "5s"
sweep = "1s"
`
