// Package protocol implements the length-prefixed frame format shared by every transport.
//
// Pipes and TCP sockets are byte streams with no message boundaries. A frame gives a message
// its boundary: a fixed 4-byte length followed by exactly that many payload bytes. The
// receiver reads the length first, then reads exactly that many bytes.
//
// Frame format:
//
//	0         4
//	┌─────────┬───────────────────┐
//	│ length  │   payload ...     │
//	│ uint32  │   length bytes    │
//	└─────────┴───────────────────┘
//
// The length is little-endian. There is no magic number and no version byte: whether the
// payload is a Request or a Response is decided by which side is reading.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize is the size of the length prefix.
	HeaderSize = 4

	// DefaultMaxFrameSize bounds the payload a reader is willing to allocate for.
	DefaultMaxFrameSize = 64 * 1024 * 1024
)

// ErrFrameTooLarge is returned by ReadFrame when the announced length exceeds the limit.
var ErrFrameTooLarge = errors.New("protocol: frame too large")

// WriteFrame writes one complete frame (length + payload) to w.
//
// Header and payload go out in a single Write call. The caller must still serialize writers
// sharing one stream, otherwise frames from different goroutines may interleave.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(payload))
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.LittleEndian.PutUint32(buf[:HeaderSize], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("protocol: write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one complete frame from r, refusing payloads above DefaultMaxFrameSize.
func ReadFrame(r io.Reader) ([]byte, error) {
	return ReadFrameLimit(r, DefaultMaxFrameSize)
}

// ReadFrameLimit reads one complete frame from r.
//
// io.ReadFull guarantees that either the whole frame is returned or an error is: a stream that
// closes between frames yields io.EOF, a stream that closes mid-frame yields
// io.ErrUnexpectedEOF.
func ReadFrameLimit(r io.Reader, maxSize uint32) ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("protocol: read frame header: %w", err)
	}

	length := binary.LittleEndian.Uint32(header)
	if length > maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, length, maxSize)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("protocol: read frame payload: %w", err)
	}
	return payload, nil
}
