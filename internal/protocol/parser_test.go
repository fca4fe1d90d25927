package protocol

import (
	"errors"
	"testing"

	"github.com/danmuck/swarmctl/internal/protocol/frame"
	"github.com/danmuck/swarmctl/internal/protocol/schema"
	"github.com/danmuck/swarmctl/internal/protocol/tlv"
	"github.com/danmuck/swarmctl/internal/testutil/testlog"
)

func kvPayload() string {
	return string(tlv.EncodeFields([]tlv.Field{
		tlv.String(schema.FieldKey, "speed"),
		tlv.String(schema.FieldValue, "1.5"),
	}))
}

func TestFrameParserRoundTrip(t *testing.T) {
	testlog.Start(t)
	p := NewFrameParser(frame.Limits{})
	payload := kvPayload()
	data, err := p.Encode(4, schema.TagNeighborKV, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	pkt, err := p.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pkt.SenderID != 4 || pkt.Type != schema.TagNeighborKV || pkt.Payload != payload {
		t.Fatalf("unexpected packet: %+v", pkt)
	}
	if pkt.Sequence != 1 {
		t.Fatalf("expected first sequence=1, got %d", pkt.Sequence)
	}
	data, _ = p.Encode(4, schema.TagNeighborKV, payload)
	pkt, _ = p.Decode(data)
	if pkt.Sequence != 2 {
		t.Fatalf("expected sequence to advance, got %d", pkt.Sequence)
	}
}

func TestFrameParserMalformedInputs(t *testing.T) {
	testlog.Start(t)
	p := NewFrameParser(frame.DefaultLimits())
	good, err := p.Encode(1, schema.TagNeighborKV, kvPayload())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	missingField, err := p.Encode(1, schema.TagNeighborKV, string(tlv.EncodeFields([]tlv.Field{
		tlv.String(schema.FieldKey, "speed"),
	})))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cases := map[string][]byte{
		"empty":         nil,
		"short header":  good[:10],
		"truncated":     good[:len(good)-1],
		"trailing":      append(append([]byte{}, good...), 0xFF),
		"missing field": missingField,
	}
	for name, data := range cases {
		if _, err := p.Decode(data); !errors.Is(err, ErrMalformedPacket) {
			t.Fatalf("%s: expected ErrMalformedPacket, got %v", name, err)
		}
	}
}

func TestFrameParserUnknownTypeDecodesToNumberedTag(t *testing.T) {
	testlog.Start(t)
	p := NewFrameParser(frame.DefaultLimits())
	data, err := p.Encode(2, "msg.99", "opaque")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// opaque is not a valid TLV stream
	if _, err := p.Decode(data); !errors.Is(err, ErrMalformedPacket) {
		t.Fatalf("expected malformed tlv, got %v", err)
	}
	data, err = p.Encode(2, "msg.99", "")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	pkt, err := p.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pkt.Type != "msg.99" {
		t.Fatalf("unexpected tag: %q", pkt.Type)
	}
}

func TestFrameParserEncodeRejects(t *testing.T) {
	testlog.Start(t)
	p := NewFrameParser(frame.DefaultLimits())
	if _, err := p.Encode(1, "not.a.tag", ""); err == nil {
		t.Fatalf("expected unknown tag error")
	}
	if _, err := p.Encode(1<<40, schema.TagNeighborKV, kvPayload()); !errors.Is(err, ErrSenderRange) {
		t.Fatalf("expected ErrSenderRange, got %v", err)
	}
}
