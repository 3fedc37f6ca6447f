// Package wire implements the length-delimited framing shared by the exam and
// chat stream protocols: every unit is a 4-byte big-endian length followed by
// that many payload bytes.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 4
	// MaxFrameSize bounds a single payload.
	MaxFrameSize = 1 << 20
)

// ErrFrameTooLarge is returned when a header announces more than MaxFrameSize bytes.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// EncodeFrame prefixes payload with its length.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[headerSize:], payload)
	return out, nil
}

// WriteFrame writes one frame with a single Write call.
func WriteFrame(w io.Writer, payload []byte) error {
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ReadFrame blocks until one complete frame has been read.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// SplitFrames extracts every complete frame at the head of buf. The returned
// rest holds a trailing partial frame, if any, and must be kept until more
// bytes arrive. Only an oversized header is an error.
func SplitFrames(buf []byte) (frames [][]byte, rest []byte, err error) {
	for len(buf) >= headerSize {
		size := binary.BigEndian.Uint32(buf)
		if size > MaxFrameSize {
			return frames, buf, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
		}
		end := headerSize + int(size)
		if len(buf) < end {
			break
		}
		payload := make([]byte, size)
		copy(payload, buf[headerSize:end])
		frames = append(frames, payload)
		buf = buf[end:]
	}
	return frames, buf, nil
}
