package platform

import "time"

// Base is the local robot pose and velocity.
type Base struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	VZ float64 `json:"vz"`
}

// NeighborBase is the latest observation of one remote robot.
type NeighborBase struct {
	Distance  float64   `json:"distance"`
	Azimuth   float64   `json:"azimuth"`
	Elevation float64   `json:"elevation"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	VX        float64   `json:"vx"`
	VY        float64   `json:"vy"`
	VZ        float64   `json:"vz"`
	// UpdatedAt is receive-time freshness for eviction, not part of the
	// observation; a re-delivered packet refreshes it and nothing else.
	UpdatedAt time.Time `json:"updated_at"`
}

// Tuple is one virtual stigmergy entry.
type Tuple struct {
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
	RobotID   int    `json:"robot_id"`
}

// NewerThan reports whether t should replace other.
// Comparison order: Timestamp, then RobotID (higher wins).
func (t Tuple) NewerThan(other Tuple) bool {
	if t.Timestamp != other.Timestamp {
		return t.Timestamp > other.Timestamp
	}
	return t.RobotID > other.RobotID
}

// Callback handles one decoded packet payload.
type Callback func(value string) error

// NoopCallback absorbs payloads for unregistered packet types.
func NoopCallback(string) error { return nil }
