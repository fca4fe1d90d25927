package protocol

import "errors"

var (
	ErrMalformedPacket = errors.New("protocol: malformed packet")
	ErrTrailingBytes   = errors.New("protocol: trailing bytes after frame")
	ErrSenderRange     = errors.New("protocol: sender id out of range")
)
