package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/swarmctl/internal/protocol/tlv"
	"github.com/rs/zerolog/log"
)

// Built-in packet type tags.
const (
	TagRobotBase      = "robot.base"
	TagSwarmList      = "swarm.list"
	TagSwarmJoin      = "swarm.join"
	TagSwarmLeave     = "swarm.leave"
	TagStigmergyPut   = "vstig.put"
	TagStigmergyQuery = "vstig.query"
	TagBarrierArrive  = "barrier.arrive"
	TagNeighborKV     = "neighbor.kv"
)

// Message type IDs carried in the frame header.
const (
	MsgRobotBase      uint32 = 1
	MsgSwarmList      uint32 = 2
	MsgSwarmJoin      uint32 = 3
	MsgSwarmLeave     uint32 = 4
	MsgStigmergyPut   uint32 = 5
	MsgStigmergyQuery uint32 = 6
	MsgBarrierArrive  uint32 = 7
	MsgNeighborKV     uint32 = 8
)

// Field IDs.
const (
	FieldX  uint16 = 1
	FieldY  uint16 = 2
	FieldZ  uint16 = 3
	FieldVX uint16 = 4
	FieldVY uint16 = 5
	FieldVZ uint16 = 6

	FieldRobotID uint16 = 10

	FieldSwarmID    uint16 = 100
	FieldSwarmCount uint16 = 101

	FieldStigmergyID uint16 = 200
	FieldKey         uint16 = 201
	FieldValue       uint16 = 202
	FieldTimestamp   uint16 = 203
	FieldWriterID    uint16 = 204

	FieldRound uint16 = 300
)

// unknownTagPrefix names message types with no built-in tag.
const unknownTagPrefix = "msg."

var tagToMsg = map[string]uint32{
	TagRobotBase:      MsgRobotBase,
	TagSwarmList:      MsgSwarmList,
	TagSwarmJoin:      MsgSwarmJoin,
	TagSwarmLeave:     MsgSwarmLeave,
	TagStigmergyPut:   MsgStigmergyPut,
	TagStigmergyQuery: MsgStigmergyQuery,
	TagBarrierArrive:  MsgBarrierArrive,
	TagNeighborKV:     MsgNeighborKV,
}

var msgToTag = func() map[uint32]string {
	out := make(map[uint32]string, len(tagToMsg))
	for tag, id := range tagToMsg {
		out[id] = tag
	}
	return out
}()

// Tags returns every built-in tag ordered by message type id.
func Tags() []string {
	out := make([]string, 0, len(msgToTag))
	for id := uint32(1); id <= uint32(len(msgToTag)); id++ {
		out = append(out, msgToTag[id])
	}
	return out
}

func IsBuiltinTag(tag string) bool {
	_, ok := tagToMsg[tag]
	return ok
}

// MessageType resolves a tag to its wire id. "msg.<n>" tags resolve to n.
func MessageType(tag string) (uint32, error) {
	if id, ok := tagToMsg[tag]; ok {
		return id, nil
	}
	if rest, ok := strings.CutPrefix(tag, unknownTagPrefix); ok {
		n, err := strconv.ParseUint(rest, 10, 32)
		if err == nil && n > 0 {
			return uint32(n), nil
		}
	}
	return 0, fmt.Errorf("schema: unknown tag %q", tag)
}

// Tag resolves a wire id to its tag. Ids without a built-in tag map to
// "msg.<n>" so they reach the no-op handler instead of failing decode.
func Tag(messageType uint32) string {
	if tag, ok := msgToTag[messageType]; ok {
		return tag
	}
	return unknownTagPrefix + strconv.FormatUint(uint64(messageType), 10)
}

type Requirement struct {
	ID   uint16
	Type uint8
}

type ValidationError struct {
	MessageType uint32
	FieldID     uint16
	Reason      string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%d: %s", e.MessageType, e.FieldID, e.Reason)
}

var requirements = map[uint32][]Requirement{
	MsgRobotBase: {
		{FieldRobotID, tlv.TypeI64},
		{FieldX, tlv.TypeF64},
		{FieldY, tlv.TypeF64},
		{FieldZ, tlv.TypeF64},
		{FieldVX, tlv.TypeF64},
		{FieldVY, tlv.TypeF64},
		{FieldVZ, tlv.TypeF64},
	},
	MsgSwarmList: {
		{FieldRobotID, tlv.TypeI64},
		{FieldSwarmCount, tlv.TypeU32},
	},
	MsgSwarmJoin: {
		{FieldRobotID, tlv.TypeI64},
		{FieldSwarmID, tlv.TypeI64},
	},
	MsgSwarmLeave: {
		{FieldRobotID, tlv.TypeI64},
		{FieldSwarmID, tlv.TypeI64},
	},
	MsgStigmergyPut: {
		{FieldStigmergyID, tlv.TypeI64},
		{FieldKey, tlv.TypeString},
		{FieldValue, tlv.TypeString},
		{FieldTimestamp, tlv.TypeI64},
		{FieldWriterID, tlv.TypeI64},
	},
	MsgStigmergyQuery: {
		{FieldStigmergyID, tlv.TypeI64},
		{FieldKey, tlv.TypeString},
	},
	MsgBarrierArrive: {
		{FieldRobotID, tlv.TypeI64},
		{FieldRound, tlv.TypeU64},
	},
	MsgNeighborKV: {
		{FieldKey, tlv.TypeString},
		{FieldValue, tlv.TypeString},
	},
}

// Validate enforces required fields and required field types for a message type.
// Unknown fields are ignored.
func Validate(messageType uint32, fields []tlv.Field) error {
	reqs, ok := requirements[messageType]
	if !ok {
		log.Debug().Uint32("message_type", messageType).Msg("schema.Validate unknown message_type")
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			log.Debug().
				Uint32("message_type", messageType).
				Uint16("field_id", req.ID).
				Msg("schema.Validate missing field")
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			log.Debug().
				Uint32("message_type", messageType).
				Uint16("field_id", req.ID).
				Uint8("got", f.Type).
				Uint8("want", req.Type).
				Msg("schema.Validate type mismatch")
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	return nil
}
