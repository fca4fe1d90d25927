package protocol

import (
	"bytes"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/danmuck/swarmctl/internal/protocol/frame"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
	"github.com/danmuck/swarmctl/internal/protocol/tlv"
)

// Packet is one decoded broadcast: who sent it, its tag, and the raw payload.
type Packet struct {
	SenderID int
	Type     string
	Payload  string
	Sequence uint64
}

// Parser converts between transport bytes and packets.
type Parser interface {
	Decode(data []byte) (Packet, error)
	Encode(senderID int, packetType string, payload string) ([]byte, error)
}

// FrameParser frames packets with the fixed header and validates TLV payloads.
type FrameParser struct {
	limits frame.Limits
	seq    atomic.Uint64
}

func NewFrameParser(limits frame.Limits) *FrameParser {
	if limits.MaxPayloadBytes == 0 {
		limits = frame.DefaultLimits()
	}
	return &FrameParser{limits: limits}
}

// Decode returns ErrMalformedPacket wrapped around any framing, TLV, or
// schema failure. Unknown message types decode to a "msg.<n>" tag.
func (p *FrameParser) Decode(data []byte) (Packet, error) {
	r := bytes.NewReader(data)
	f, err := frame.ReadFrame(r, p.limits)
	if err != nil {
		return Packet{}, fmt.Errorf("%w: %w", ErrMalformedPacket, err)
	}
	if r.Len() != 0 {
		return Packet{}, fmt.Errorf("%w: %w: %d", ErrMalformedPacket, ErrTrailingBytes, r.Len())
	}
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		return Packet{}, fmt.Errorf("%w: %w", ErrMalformedPacket, err)
	}
	tag := schema.Tag(f.Header.MessageType)
	if schema.IsBuiltinTag(tag) {
		if err := schema.Validate(f.Header.MessageType, fields); err != nil {
			return Packet{}, fmt.Errorf("%w: %w", ErrMalformedPacket, err)
		}
	}
	return Packet{
		SenderID: int(f.Header.SenderID),
		Type:     tag,
		Payload:  string(f.Payload),
		Sequence: f.Header.Sequence,
	}, nil
}

func (p *FrameParser) Encode(senderID int, packetType string, payload string) ([]byte, error) {
	msgType, err := schema.MessageType(packetType)
	if err != nil {
		return nil, err
	}
	if senderID < math.MinInt32 || senderID > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d", ErrSenderRange, senderID)
	}
	var buf bytes.Buffer
	err = frame.WriteFrame(&buf, frame.Frame{
		Header: frame.Header{
			Sequence:    p.seq.Add(1),
			MessageType: msgType,
			SenderID:    int32(senderID),
		},
		Payload: []byte(payload),
	}, p.limits)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
