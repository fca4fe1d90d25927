package platform

import (
	"github.com/danmuck/swarmctl/internal/guard"
)

// Platform is the partitioned state store for one robot.
type Platform struct {
	robotID          *guard.Cell[int]
	robotType        *guard.Cell[int]
	robotStatus      *guard.Cell[int]
	base             *guard.Cell[Base]
	neighbors        *guard.Map[int, NeighborBase]
	swarms           *guard.Map[int, bool]
	neighborSwarms   *guard.Map[int, []int]
	stigmergy        *guard.Map[int, map[string]Tuple]
	neighborDistance *guard.Cell[float64]
	barrier          *guard.Cell[barrierState]
	callbacks        *guard.Map[string, Callback]
}

func New(robotID int) *Platform {
	return &Platform{
		robotID:          guard.NewCell(robotID),
		robotType:        guard.NewCell(0),
		robotStatus:      guard.NewCell(0),
		base:             guard.NewCell(Base{}),
		neighbors:        guard.NewMap[int, NeighborBase](),
		swarms:           guard.NewMap[int, bool](),
		neighborSwarms:   guard.NewMap[int, []int](),
		stigmergy:        guard.NewMap[int, map[string]Tuple](),
		neighborDistance: guard.NewCell(0.0),
		barrier:          guard.NewCell(newBarrierState()),
		callbacks:        guard.NewMap[string, Callback](),
	}
}

func (p *Platform) RobotID() int {
	return p.robotID.Load()
}

func (p *Platform) SetRobotID(id int) {
	p.robotID.Store(id)
}

func (p *Platform) RobotType() int {
	return p.robotType.Load()
}

func (p *Platform) SetRobotType(t int) {
	p.robotType.Store(t)
}

func (p *Platform) RobotStatus() int {
	return p.robotStatus.Load()
}

func (p *Platform) SetRobotStatus(s int) {
	p.robotStatus.Store(s)
}

func (p *Platform) RobotBase() Base {
	return p.base.Load()
}

func (p *Platform) SetRobotBase(b Base) {
	p.base.Store(b)
}

// NeighborDistance is the advisory radius used by higher-level logic.
func (p *Platform) NeighborDistance() float64 {
	return p.neighborDistance.Load()
}

func (p *Platform) SetNeighborDistance(d float64) {
	p.neighborDistance.Store(d)
}
