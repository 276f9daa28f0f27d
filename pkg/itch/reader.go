package itch

import (
	"bufio"
	"errors"
	"io"
)

const readBufferSize = 64 << 10

// Frame is one length-prefixed unit of the feed.
type Frame struct {
	Tag byte
	// Payload holds the declared length minus the tag byte. It is only valid
	// until the next call to ReadFrame.
	Payload []byte
}

// Type returns the message type of the frame's tag.
func (f Frame) Type() MessageType {
	return TypeOf(f.Tag)
}

// Reader splits a byte stream into frames: a 2-byte big-endian length followed
// by that many bytes, the first of which is the type tag.
type Reader struct {
	r      *bufio.Reader
	prefix [2]byte
	buf    []byte
}

// NewReader wraps r in a buffered frame reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:   bufio.NewReaderSize(r, readBufferSize),
		buf: make([]byte, 0, 1<<16),
	}
}

// ReadFrame returns the next frame. It returns io.EOF when no further length
// prefix is available, and a *FramingError when the stream ends mid-frame or a
// frame is empty.
func (r *Reader) ReadFrame() (Frame, error) {
	if _, err := io.ReadFull(r.r, r.prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, &FramingError{Reason: "stream ends inside a length prefix"}
		}
		return Frame{}, err
	}

	length := int(Uint16(r.prefix[:]))
	if length == 0 {
		return Frame{}, &FramingError{Reason: "zero-length frame has no type tag"}
	}

	buf := r.buf[:length]
	if n, err := io.ReadFull(r.r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, &FramingError{Tag: firstByte(buf, n), Got: n - 1, Want: []int{length - 1},
				Reason: "stream ends inside a frame"}
		}
		return Frame{}, err
	}

	return Frame{Tag: buf[0], Payload: buf[1:]}, nil
}

func firstByte(b []byte, n int) byte {
	if n == 0 {
		return 0
	}
	return b[0]
}
