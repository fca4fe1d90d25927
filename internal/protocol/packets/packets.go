// Package packets holds the typed payload codecs for built-in packet tags.
package packets

import (
	"fmt"

	"github.com/danmuck/swarmctl/internal/platform"
	"github.com/danmuck/swarmctl/internal/protocol"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
	"github.com/danmuck/swarmctl/internal/protocol/tlv"
)

type RobotBase struct {
	RobotID int
	Base    platform.Base
}

type SwarmList struct {
	RobotID  int
	SwarmIDs []int
}

// SwarmMembership is the payload of both swarm.join and swarm.leave.
type SwarmMembership struct {
	RobotID int
	SwarmID int
}

type StigmergyPut struct {
	ID        int
	Key       string
	Value     string
	Timestamp int64
	RobotID   int
}

type StigmergyQuery struct {
	ID  int
	Key string
}

type BarrierArrive struct {
	RobotID int
	Round   uint64
}

type NeighborKV struct {
	Key   string
	Value string
}

func decode(msgType uint32, payload string) ([]tlv.Field, error) {
	fields, err := tlv.DecodeFields([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrMalformedPacket, err)
	}
	if err := schema.Validate(msgType, fields); err != nil {
		return nil, fmt.Errorf("%w: %w", protocol.ErrMalformedPacket, err)
	}
	return fields, nil
}

// fieldReader pulls validated fields; the first conversion error sticks.
type fieldReader struct {
	fields []tlv.Field
	err    error
}

func (r *fieldReader) f64(id uint16) float64 {
	f, _ := tlv.GetField(r.fields, id)
	v, err := tlv.F64FromBytes(f.Value)
	r.fail(err)
	return v
}

func (r *fieldReader) i64(id uint16) int64 {
	f, _ := tlv.GetField(r.fields, id)
	v, err := tlv.I64FromBytes(f.Value)
	r.fail(err)
	return v
}

func (r *fieldReader) u64(id uint16) uint64 {
	f, _ := tlv.GetField(r.fields, id)
	v, err := tlv.U64FromBytes(f.Value)
	r.fail(err)
	return v
}

func (r *fieldReader) str(id uint16) string {
	f, _ := tlv.GetField(r.fields, id)
	return string(f.Value)
}

func (r *fieldReader) fail(err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%w: %w", protocol.ErrMalformedPacket, err)
	}
}

func EncodeRobotBase(rb RobotBase) string {
	b := rb.Base
	return string(tlv.EncodeFields([]tlv.Field{
		tlv.I64(schema.FieldRobotID, int64(rb.RobotID)),
		tlv.F64(schema.FieldX, b.X),
		tlv.F64(schema.FieldY, b.Y),
		tlv.F64(schema.FieldZ, b.Z),
		tlv.F64(schema.FieldVX, b.VX),
		tlv.F64(schema.FieldVY, b.VY),
		tlv.F64(schema.FieldVZ, b.VZ),
	}))
}

func DecodeRobotBase(payload string) (RobotBase, error) {
	fields, err := decode(schema.MsgRobotBase, payload)
	if err != nil {
		return RobotBase{}, err
	}
	r := &fieldReader{fields: fields}
	rb := RobotBase{
		RobotID: int(r.i64(schema.FieldRobotID)),
		Base: platform.Base{
			X:  r.f64(schema.FieldX),
			Y:  r.f64(schema.FieldY),
			Z:  r.f64(schema.FieldZ),
			VX: r.f64(schema.FieldVX),
			VY: r.f64(schema.FieldVY),
			VZ: r.f64(schema.FieldVZ),
		},
	}
	return rb, r.err
}

// EncodeSwarmList writes the count followed by one repeated field per id.
func EncodeSwarmList(sl SwarmList) string {
	fields := make([]tlv.Field, 0, len(sl.SwarmIDs)+2)
	fields = append(fields,
		tlv.I64(schema.FieldRobotID, int64(sl.RobotID)),
		tlv.U32(schema.FieldSwarmCount, uint32(len(sl.SwarmIDs))),
	)
	for _, id := range sl.SwarmIDs {
		fields = append(fields, tlv.I64(schema.FieldSwarmID, int64(id)))
	}
	return string(tlv.EncodeFields(fields))
}

func DecodeSwarmList(payload string) (SwarmList, error) {
	fields, err := decode(schema.MsgSwarmList, payload)
	if err != nil {
		return SwarmList{}, err
	}
	r := &fieldReader{fields: fields}
	robotID := int(r.i64(schema.FieldRobotID))
	if r.err != nil {
		return SwarmList{}, r.err
	}
	countField, _ := tlv.GetField(fields, schema.FieldSwarmCount)
	count, err := tlv.U32FromBytes(countField.Value)
	if err != nil {
		return SwarmList{}, fmt.Errorf("%w: %w", protocol.ErrMalformedPacket, err)
	}
	repeated := tlv.GetAll(fields, schema.FieldSwarmID)
	if uint32(len(repeated)) != count {
		return SwarmList{}, fmt.Errorf("%w: swarm count=%d ids=%d", protocol.ErrMalformedPacket, count, len(repeated))
	}
	ids := make([]int, 0, len(repeated))
	for _, f := range repeated {
		if err := tlv.MustType(f, tlv.TypeI64); err != nil {
			return SwarmList{}, fmt.Errorf("%w: %w", protocol.ErrMalformedPacket, err)
		}
		v, err := tlv.I64FromBytes(f.Value)
		if err != nil {
			return SwarmList{}, fmt.Errorf("%w: %w", protocol.ErrMalformedPacket, err)
		}
		ids = append(ids, int(v))
	}
	return SwarmList{RobotID: robotID, SwarmIDs: ids}, nil
}

func EncodeSwarmMembership(m SwarmMembership) string {
	return string(tlv.EncodeFields([]tlv.Field{
		tlv.I64(schema.FieldRobotID, int64(m.RobotID)),
		tlv.I64(schema.FieldSwarmID, int64(m.SwarmID)),
	}))
}

func DecodeSwarmMembership(payload string) (SwarmMembership, error) {
	// join and leave share requirements
	fields, err := decode(schema.MsgSwarmJoin, payload)
	if err != nil {
		return SwarmMembership{}, err
	}
	r := &fieldReader{fields: fields}
	m := SwarmMembership{
		RobotID: int(r.i64(schema.FieldRobotID)),
		SwarmID: int(r.i64(schema.FieldSwarmID)),
	}
	return m, r.err
}

func EncodeStigmergyPut(p StigmergyPut) string {
	return string(tlv.EncodeFields([]tlv.Field{
		tlv.I64(schema.FieldStigmergyID, int64(p.ID)),
		tlv.String(schema.FieldKey, p.Key),
		tlv.String(schema.FieldValue, p.Value),
		tlv.I64(schema.FieldTimestamp, p.Timestamp),
		tlv.I64(schema.FieldWriterID, int64(p.RobotID)),
	}))
}

func DecodeStigmergyPut(payload string) (StigmergyPut, error) {
	fields, err := decode(schema.MsgStigmergyPut, payload)
	if err != nil {
		return StigmergyPut{}, err
	}
	r := &fieldReader{fields: fields}
	p := StigmergyPut{
		ID:        int(r.i64(schema.FieldStigmergyID)),
		Key:       r.str(schema.FieldKey),
		Value:     r.str(schema.FieldValue),
		Timestamp: r.i64(schema.FieldTimestamp),
		RobotID:   int(r.i64(schema.FieldWriterID)),
	}
	return p, r.err
}

func EncodeStigmergyQuery(q StigmergyQuery) string {
	return string(tlv.EncodeFields([]tlv.Field{
		tlv.I64(schema.FieldStigmergyID, int64(q.ID)),
		tlv.String(schema.FieldKey, q.Key),
	}))
}

func DecodeStigmergyQuery(payload string) (StigmergyQuery, error) {
	fields, err := decode(schema.MsgStigmergyQuery, payload)
	if err != nil {
		return StigmergyQuery{}, err
	}
	r := &fieldReader{fields: fields}
	q := StigmergyQuery{
		ID:  int(r.i64(schema.FieldStigmergyID)),
		Key: r.str(schema.FieldKey),
	}
	return q, r.err
}

func EncodeBarrierArrive(b BarrierArrive) string {
	return string(tlv.EncodeFields([]tlv.Field{
		tlv.I64(schema.FieldRobotID, int64(b.RobotID)),
		tlv.U64(schema.FieldRound, b.Round),
	}))
}

func DecodeBarrierArrive(payload string) (BarrierArrive, error) {
	fields, err := decode(schema.MsgBarrierArrive, payload)
	if err != nil {
		return BarrierArrive{}, err
	}
	r := &fieldReader{fields: fields}
	b := BarrierArrive{
		RobotID: int(r.i64(schema.FieldRobotID)),
		Round:   r.u64(schema.FieldRound),
	}
	return b, r.err
}

func EncodeNeighborKV(kv NeighborKV) string {
	return string(tlv.EncodeFields([]tlv.Field{
		tlv.String(schema.FieldKey, kv.Key),
		tlv.String(schema.FieldValue, kv.Value),
	}))
}

func DecodeNeighborKV(payload string) (NeighborKV, error) {
	fields, err := decode(schema.MsgNeighborKV, payload)
	if err != nil {
		return NeighborKV{}, err
	}
	r := &fieldReader{fields: fields}
	return NeighborKV{Key: r.str(schema.FieldKey), Value: r.str(schema.FieldValue)}, nil
}
