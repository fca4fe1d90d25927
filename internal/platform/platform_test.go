package platform

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/swarmctl/internal/testutil/testlog"
)

func TestIdentityAndBase(t *testing.T) {
	testlog.Start(t)
	p := New(3)
	if p.RobotID() != 3 {
		t.Fatalf("unexpected robot id=%d", p.RobotID())
	}
	p.SetRobotType(2)
	p.SetRobotStatus(1)
	p.SetRobotBase(Base{X: 1, Y: 2, Z: 3, VX: 0.5})
	if p.RobotType() != 2 || p.RobotStatus() != 1 {
		t.Fatalf("unexpected type/status: %d/%d", p.RobotType(), p.RobotStatus())
	}
	b := p.RobotBase()
	b.X = 100
	if p.RobotBase().X != 1 {
		t.Fatalf("robot base returned a shared reference")
	}
	p.SetNeighborDistance(4.5)
	if p.NeighborDistance() != 4.5 {
		t.Fatalf("unexpected neighbor distance=%v", p.NeighborDistance())
	}
}

func TestNeighborInsertOrUpdateIsIdempotent(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	at := time.Unix(1700000000, 0)
	nb := NeighborBase{Distance: 2, Azimuth: 0.1, X: 1, Y: 1, UpdatedAt: at}
	p.InsertOrUpdateNeighbor(2, nb)
	once := p.Neighbors()
	p.InsertOrUpdateNeighbor(2, nb)
	twice := p.Neighbors()
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("second apply changed table: once=%+v twice=%+v", once, twice)
	}
	if !p.InNeighbors(2) || p.InNeighbors(9) {
		t.Fatalf("unexpected neighbor membership")
	}
}

func TestNeighborReapplyOnlyRefreshesUpdatedAt(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	nb := NeighborBase{Distance: 2, X: 1}
	p.InsertOrUpdateNeighbor(2, nb)
	first, _ := p.Neighbor(2)
	time.Sleep(time.Millisecond)
	p.InsertOrUpdateNeighbor(2, nb)
	second, _ := p.Neighbor(2)

	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Fatalf("freshness went backwards: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	first.UpdatedAt, second.UpdatedAt = time.Time{}, time.Time{}
	if first != second || p.NeighborCount() != 1 {
		t.Fatalf("re-apply changed the observation: %+v -> %+v", first, second)
	}
}

func TestNeighborOverwriteIsWholesale(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	p.InsertOrUpdateNeighbor(2, NeighborBase{Distance: 2, X: 5, VX: 9})
	p.InsertOrUpdateNeighbor(2, NeighborBase{Distance: 3, X: 6})
	got, ok := p.Neighbor(2)
	if !ok {
		t.Fatalf("missing neighbor")
	}
	if got.Distance != 3 || got.X != 6 || got.VX != 0 {
		t.Fatalf("expected full overwrite, got %+v", got)
	}
	p.DeleteNeighbor(2)
	p.DeleteNeighbor(2)
	if p.InNeighbors(2) {
		t.Fatalf("neighbor should be deleted")
	}
}

func TestNeighborsWithin(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	p.InsertOrUpdateNeighbor(2, NeighborBase{Distance: 1})
	p.InsertOrUpdateNeighbor(3, NeighborBase{Distance: 5})
	if got := p.NeighborsWithin(2); len(got) != 1 {
		t.Fatalf("expected one neighbor within 2, got %+v", got)
	}
	if got := p.NeighborsWithin(0); len(got) != 2 {
		t.Fatalf("expected unfiltered table, got %+v", got)
	}
}

func TestEvictNeighbors(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	now := time.Unix(1700000100, 0)
	p.InsertOrUpdateNeighbor(2, NeighborBase{UpdatedAt: now.Add(-time.Minute)})
	p.InsertOrUpdateNeighbor(3, NeighborBase{UpdatedAt: now.Add(-time.Second)})
	p.InsertOrRefreshNeighborSwarm(2, []int{1})

	if removed := p.EvictNeighbors(NoEviction{}, now); len(removed) != 0 {
		t.Fatalf("no-eviction removed %v", removed)
	}
	removed := p.EvictNeighbors(StalenessEviction{TTL: 10 * time.Second}, now)
	if len(removed) != 1 || removed[0] != 2 {
		t.Fatalf("unexpected removed=%v", removed)
	}
	if p.InNeighbors(2) || !p.InNeighbors(3) {
		t.Fatalf("unexpected neighbor table after eviction: %+v", p.Neighbors())
	}
	if _, ok := p.NeighborSwarm(2); ok {
		t.Fatalf("evicted neighbor swarm tuple should be removed")
	}
}

func TestSwarmFlags(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	p.InsertOrUpdateSwarm(3, true)
	p.InsertOrUpdateSwarm(1, true)
	p.InsertOrUpdateSwarm(2, false)
	if !p.Swarm(3) || p.Swarm(2) || p.Swarm(99) {
		t.Fatalf("unexpected swarm flags")
	}
	if got := p.SwarmList(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("unexpected swarm list=%v", got)
	}
	p.DeleteSwarm(3)
	p.DeleteSwarm(42)
	if got := p.SwarmList(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("unexpected swarm list after delete=%v", got)
	}
}

func TestNeighborSwarmRefreshReplaces(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	p.InsertOrRefreshNeighborSwarm(2, []int{1, 2, 2})
	p.InsertOrRefreshNeighborSwarm(2, []int{3})
	got, _ := p.NeighborSwarm(2)
	if !reflect.DeepEqual(got, []int{3}) {
		t.Fatalf("refresh should replace, got %v", got)
	}
	p.JoinNeighborSwarm(2, 1)
	p.JoinNeighborSwarm(2, 1)
	if !p.InNeighborSwarm(2, 1) || !p.InNeighborSwarm(2, 3) {
		t.Fatalf("join failed: %v", p.NeighborSwarms())
	}
	p.LeaveNeighborSwarm(2, 3)
	p.LeaveNeighborSwarm(7, 3)
	if p.InNeighborSwarm(2, 3) {
		t.Fatalf("leave failed: %v", p.NeighborSwarms())
	}
	p.DeleteNeighborSwarm(2)
	if p.InNeighborSwarm(2, 1) {
		t.Fatalf("delete failed")
	}
}

func TestSwarmMembers(t *testing.T) {
	testlog.Start(t)
	const (
		local = 10
		a     = 20
		b     = 30
	)
	p := New(local)
	p.InsertOrRefreshNeighborSwarm(a, []int{1, 2})
	p.InsertOrRefreshNeighborSwarm(b, []int{2, 3})
	p.InsertOrUpdateSwarm(2, true)

	if got := p.SwarmMembers(2); !reflect.DeepEqual(got, []int{local, a, b}) {
		t.Fatalf("members of 2 = %v", got)
	}
	if got := p.SwarmMembers(1); !reflect.DeepEqual(got, []int{a}) {
		t.Fatalf("members of 1 = %v", got)
	}
	if got := p.SwarmMembers(9); len(got) != 0 {
		t.Fatalf("members of 9 = %v", got)
	}
}

func TestVirtualStigmergyNamespaceGating(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	_, err := p.InsertOrUpdateVirtualStigmergy(7, "k", "v", 1, 1)
	if !errors.Is(err, ErrNamespaceNotFound) {
		t.Fatalf("expected ErrNamespaceNotFound, got %v", err)
	}
	if _, _, err := p.VirtualStigmergyTuple(7, "k"); !errors.Is(err, ErrNamespaceNotFound) {
		t.Fatalf("expected ErrNamespaceNotFound on read, got %v", err)
	}
	if _, err := p.VirtualStigmergySize(7); !errors.Is(err, ErrNamespaceNotFound) {
		t.Fatalf("expected ErrNamespaceNotFound on size, got %v", err)
	}

	p.CreateVirtualStigmergy(7)
	applied, err := p.InsertOrUpdateVirtualStigmergy(7, "k", "v", 1, 1)
	if err != nil || !applied {
		t.Fatalf("write after create: applied=%v err=%v", applied, err)
	}
	got, ok, err := p.VirtualStigmergyTuple(7, "k")
	if err != nil || !ok || got.Value != "v" {
		t.Fatalf("read after create: tuple=%+v ok=%v err=%v", got, ok, err)
	}

	p.CreateVirtualStigmergy(7)
	if size, _ := p.VirtualStigmergySize(7); size != 1 {
		t.Fatalf("re-create should keep contents, size=%d", size)
	}
}

func TestVirtualStigmergyLastWriterWins(t *testing.T) {
	testlog.Start(t)
	type write struct {
		value string
		ts    int64
		robot int
	}
	w1 := write{"old", 10, 5}
	w2 := write{"new", 20, 1}
	orders := [][]write{{w1, w2}, {w2, w1}}
	for _, order := range orders {
		p := New(1)
		p.CreateVirtualStigmergy(1)
		for _, w := range order {
			if _, err := p.InsertOrUpdateVirtualStigmergy(1, "k", w.value, w.ts, w.robot); err != nil {
				t.Fatalf("write: %v", err)
			}
		}
		got, _, _ := p.VirtualStigmergyTuple(1, "k")
		if got.Value != "new" {
			t.Fatalf("order=%v expected newest write, got %+v", order, got)
		}
	}
}

func TestVirtualStigmergyTieBreakIsOrderIndependent(t *testing.T) {
	testlog.Start(t)
	apply := func(first, second Tuple) Tuple {
		p := New(1)
		p.CreateVirtualStigmergy(1)
		_, _ = p.InsertOrUpdateVirtualStigmergy(1, "k", first.Value, first.Timestamp, first.RobotID)
		_, _ = p.InsertOrUpdateVirtualStigmergy(1, "k", second.Value, second.Timestamp, second.RobotID)
		got, _, _ := p.VirtualStigmergyTuple(1, "k")
		return got
	}
	low := Tuple{Value: "from-2", Timestamp: 50, RobotID: 2}
	high := Tuple{Value: "from-9", Timestamp: 50, RobotID: 9}
	ab := apply(low, high)
	ba := apply(high, low)
	if ab != ba {
		t.Fatalf("tie-break depends on order: %+v vs %+v", ab, ba)
	}
	if ab.RobotID != 9 {
		t.Fatalf("expected higher robot id to win, got %+v", ab)
	}
}

func TestVirtualStigmergyStaleWriteDropped(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	p.CreateVirtualStigmergy(1)
	_, _ = p.InsertOrUpdateVirtualStigmergy(1, "k", "v2", 20, 1)
	applied, err := p.InsertOrUpdateVirtualStigmergy(1, "k", "v1", 10, 1)
	if err != nil {
		t.Fatalf("stale write should not error: %v", err)
	}
	if applied {
		t.Fatalf("stale write should be dropped")
	}
	applied, _ = p.InsertOrUpdateVirtualStigmergy(1, "k", "v2", 20, 1)
	if applied {
		t.Fatalf("duplicate delivery should be a no-op")
	}
}

func TestVirtualStigmergyDeletes(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	p.CreateVirtualStigmergy(1)
	_, _ = p.InsertOrUpdateVirtualStigmergy(1, "a", "1", 1, 1)
	_, _ = p.InsertOrUpdateVirtualStigmergy(1, "b", "2", 1, 1)
	p.DeleteVirtualStigmergyValue(1, "a")
	p.DeleteVirtualStigmergyValue(1, "missing")
	p.DeleteVirtualStigmergyValue(99, "a")
	if size, _ := p.VirtualStigmergySize(1); size != 1 {
		t.Fatalf("unexpected size=%d", size)
	}
	snap, err := p.VirtualStigmergySnapshot(1)
	if err != nil || len(snap) != 1 {
		t.Fatalf("snapshot: %v %v", snap, err)
	}
	snap["c"] = Tuple{}
	if size, _ := p.VirtualStigmergySize(1); size != 1 {
		t.Fatalf("snapshot write leaked into store")
	}
	p.DeleteVirtualStigmergy(1)
	p.DeleteVirtualStigmergy(1)
	if p.HasVirtualStigmergy(1) {
		t.Fatalf("space should be deleted")
	}
}

func TestBarrierRounds(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	for _, id := range []int{1, 2, 2, 3} {
		p.InsertBarrier(id)
	}
	if p.BarrierSize() != 3 {
		t.Fatalf("unexpected barrier size=%d", p.BarrierSize())
	}
	if _, ok := p.CrossBarrier(4); ok {
		t.Fatalf("barrier crossed before fleet arrived")
	}
	p.InsertBarrier(4)
	round, ok := p.CrossBarrier(4)
	if !ok || round != 0 {
		t.Fatalf("expected crossing on round 0, got round=%d ok=%v", round, ok)
	}
	if _, ok := p.CrossBarrier(4); ok {
		t.Fatalf("barrier should signal exactly once per round")
	}
	if next := p.ResetBarrier(); next != 1 {
		t.Fatalf("unexpected next round=%d", next)
	}
	if p.BarrierSize() != 0 || p.BarrierCrossed() {
		t.Fatalf("reset should clear the barrier")
	}
	if p.InsertBarrierForRound(2, 0) {
		t.Fatalf("arrival for old round should be ignored")
	}
	if !p.InsertBarrierForRound(2, 1) {
		t.Fatalf("arrival for current round should be recorded")
	}
	if got := p.BarrierMembers(); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("unexpected members=%v", got)
	}
	if !p.InBarrier(2) || p.InBarrier(1) {
		t.Fatalf("unexpected barrier membership")
	}
	if round, crossed := p.BarrierState(); round != 1 || crossed {
		t.Fatalf("unexpected state round=%d crossed=%v", round, crossed)
	}
}

func TestCallbackRegistryDefaultsToNoop(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	if err := p.Callback("unknown")("payload"); err != nil {
		t.Fatalf("noop callback returned %v", err)
	}
	var got string
	p.InsertOrUpdateCallback("robot.base", func(v string) error {
		got = v
		return nil
	})
	_ = p.Callback("robot.base")("first")
	p.InsertOrUpdateCallback("robot.base", func(v string) error {
		got = "replaced:" + v
		return nil
	})
	_ = p.Callback("robot.base")("second")
	if got != "replaced:second" {
		t.Fatalf("re-registration not applied, got %q", got)
	}
	p.DeleteCallback("robot.base")
	if p.HasCallback("robot.base") {
		t.Fatalf("callback should be deleted")
	}
	if keys := p.CallbackKeys(); len(keys) != 0 {
		t.Fatalf("unexpected keys=%v", keys)
	}
}

func TestPartitionIsolation(t *testing.T) {
	testlog.Start(t)
	p := New(1)

	held := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.neighbors.Update(2, func(NeighborBase, bool) (NeighborBase, bool) {
			close(held)
			<-release
			return NeighborBase{}, true
		})
	}()
	<-held

	done := make(chan struct{})
	go func() {
		p.InsertOrUpdateSwarm(1, true)
		_ = p.SwarmList()
		p.CreateVirtualStigmergy(1)
		p.InsertBarrier(1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("swarm partition blocked behind neighbor partition")
	}
	close(release)
	wg.Wait()
}

func TestDumps(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	p.InsertOrUpdateNeighbor(2, NeighborBase{Distance: 1})
	p.InsertOrRefreshNeighborSwarm(2, []int{4})
	p.CreateVirtualStigmergy(1)
	_, _ = p.InsertOrUpdateVirtualStigmergy(1, "k", "v", 1, 1)
	for name, out := range map[string]string{
		"base":      p.DumpRobotBase(),
		"neighbors": p.DumpNeighbors(),
		"swarms":    p.DumpSwarms(),
		"nswarms":   p.DumpNeighborSwarms(),
		"vstig":     p.DumpVirtualStigmergy(),
	} {
		if out == "" {
			t.Fatalf("empty dump for %s", name)
		}
	}
}

func TestCrossBarrierBehindNeedsLaterRound(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	p.ResetBarrier()
	if _, ok := p.CrossBarrierBehind(0); ok {
		t.Fatalf("earlier round must not cross")
	}
	if _, ok := p.CrossBarrierBehind(1); ok {
		t.Fatalf("same round must not cross")
	}
	round, ok := p.CrossBarrierBehind(2)
	if !ok || round != 1 {
		t.Fatalf("expected round 1 crossed, got round=%d ok=%v", round, ok)
	}
	if _, ok := p.CrossBarrierBehind(5); ok {
		t.Fatalf("crossing reported twice in one round")
	}
	if _, ok := p.CrossBarrier(1); ok {
		t.Fatalf("quorum crossing reported after peer crossing")
	}
	if p.BarrierSize() != 0 {
		t.Fatalf("peer crossing must not add members, size=%d", p.BarrierSize())
	}
}

func TestStampVirtualStigmergyGivesConcurrentWritersDistinctStamps(t *testing.T) {
	testlog.Start(t)
	p := New(1)
	if _, err := p.StampVirtualStigmergy(9, "k", "v", 1, 1); !errors.Is(err, ErrNamespaceNotFound) {
		t.Fatalf("expected namespace error, got %v", err)
	}
	p.CreateVirtualStigmergy(9)

	const writers = 32
	stamps := make(chan int64, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tuple, err := p.StampVirtualStigmergy(9, "k", "v", 100, 1)
			if err != nil {
				t.Errorf("stamp: %v", err)
				return
			}
			stamps <- tuple.Timestamp
		}()
	}
	wg.Wait()
	close(stamps)

	seen := make(map[int64]bool, writers)
	for ts := range stamps {
		if seen[ts] {
			t.Fatalf("stamp %d handed out twice", ts)
		}
		seen[ts] = true
	}
	tuple, _, _ := p.VirtualStigmergyTuple(9, "k")
	if tuple.Timestamp != 100+writers-1 {
		t.Fatalf("expected final stamp %d, got %d", 100+writers-1, tuple.Timestamp)
	}
}
