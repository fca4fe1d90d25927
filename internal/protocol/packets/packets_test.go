package packets

import (
	"errors"
	"slices"
	"testing"

	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/protocol"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
	"github.com/danmuck/swarmctl/internal/protocol/tlv"
	"github.com/danmuck/swarmctl/internal/testutil/testlog"
)

func TestRobotBaseCodec(t *testing.T) {
	testlog.Start(t)
	in := RobotBase{RobotID: 9, Base: platform.Base{X: 1.5, Y: -2, Z: 0.25, VX: 0.1, VY: 0, VZ: -9.8}}
	out, err := DecodeRobotBase(EncodeRobotBase(in))
	if err != nil {
		t.Fatalf("decode robot base: %v", err)
	}
	if out != in {
		t.Fatalf("robot base mismatch: got=%+v want=%+v", out, in)
	}
}

func TestSwarmListCodecKeepsOrderAndEmpty(t *testing.T) {
	testlog.Start(t)
	sl, err := DecodeSwarmList(EncodeSwarmList(SwarmList{RobotID: 4, SwarmIDs: []int{3, 1, -2}}))
	if err != nil {
		t.Fatalf("decode swarm list: %v", err)
	}
	if sl.RobotID != 4 || !slices.Equal(sl.SwarmIDs, []int{3, 1, -2}) {
		t.Fatalf("unexpected list: %+v", sl)
	}
	sl, err = DecodeSwarmList(EncodeSwarmList(SwarmList{RobotID: 4}))
	if err != nil {
		t.Fatalf("decode empty swarm list: %v", err)
	}
	if len(sl.SwarmIDs) != 0 {
		t.Fatalf("expected empty list, got %v", sl.SwarmIDs)
	}
}

func TestSwarmListCountMismatchIsMalformed(t *testing.T) {
	testlog.Start(t)
	payload := string(tlv.EncodeFields([]tlv.Field{
		tlv.I64(schema.FieldRobotID, 1),
		tlv.U32(schema.FieldSwarmCount, 2),
		tlv.I64(schema.FieldSwarmID, 1),
	}))
	if _, err := DecodeSwarmList(payload); !errors.Is(err, protocol.ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestStigmergyPutCodec(t *testing.T) {
	testlog.Start(t)
	in := StigmergyPut{ID: 7, Key: "leader", Value: "robot-3", Timestamp: 1_700_000_000_123, RobotID: 3}
	out, err := DecodeStigmergyPut(EncodeStigmergyPut(in))
	if err != nil {
		t.Fatalf("decode put: %v", err)
	}
	if out != in {
		t.Fatalf("put mismatch: got=%+v want=%+v", out, in)
	}
}

func TestSmallCodecs(t *testing.T) {
	testlog.Start(t)
	m, err := DecodeSwarmMembership(EncodeSwarmMembership(SwarmMembership{RobotID: 2, SwarmID: 12}))
	if err != nil || m.RobotID != 2 || m.SwarmID != 12 {
		t.Fatalf("membership: %+v err=%v", m, err)
	}
	q, err := DecodeStigmergyQuery(EncodeStigmergyQuery(StigmergyQuery{ID: 2, Key: "k"}))
	if err != nil || q.ID != 2 || q.Key != "k" {
		t.Fatalf("query: %+v err=%v", q, err)
	}
	b, err := DecodeBarrierArrive(EncodeBarrierArrive(BarrierArrive{RobotID: 3, Round: 5}))
	if err != nil || b.Round != 5 || b.RobotID != 3 {
		t.Fatalf("barrier: %+v err=%v", b, err)
	}
	kv, err := DecodeNeighborKV(EncodeNeighborKV(NeighborKV{Key: "speed", Value: ""}))
	if err != nil || kv.Key != "speed" || kv.Value != "" {
		t.Fatalf("kv: %+v err=%v", kv, err)
	}
}

func TestDecodeRejectsWrongPayload(t *testing.T) {
	testlog.Start(t)
	if _, err := DecodeStigmergyPut(EncodeNeighborKV(NeighborKV{Key: "a", Value: "b"})); !errors.Is(err, protocol.ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
	if _, err := DecodeRobotBase("xx"); !errors.Is(err, protocol.ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
	bad := string(tlv.EncodeFields([]tlv.Field{
		tlv.I64(schema.FieldRobotID, 1),
		{ID: schema.FieldRound, Type: tlv.TypeU64, Value: []byte{1, 2}},
	}))
	if _, err := DecodeBarrierArrive(bad); !errors.Is(err, protocol.ErrMalformedPacket) {
		t.Fatalf("expected ErrMalformedPacket for short u64, got %v", err)
	}
}
