package itch

import (
	"errors"
	"fmt"
	"strings"
)

// Errors
var (
	// ErrFraming is wrapped by every FramingError.
	ErrFraming = errors.New("framing error")
	// ErrNotDecodable is returned by Decode for administrative and unknown tags.
	ErrNotDecodable = errors.New("message type is not decodable")
)

// FramingError reports a frame whose size does not fit its type or the stream.
// The stream position is unreliable after one.
type FramingError struct {
	Tag  byte
	Got  int
	Want []int
	// Reason is set for stream-level failures such as truncation.
	Reason string
}

func (e *FramingError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s", ErrFraming, e.Reason)
	}
	want := make([]string, len(e.Want))
	for i, w := range e.Want {
		want[i] = fmt.Sprint(w)
	}
	return fmt.Sprintf("%v: %s (tag %q) payload is %d bytes, want %s",
		ErrFraming, TypeOf(e.Tag), e.Tag, e.Got, strings.Join(want, " or "))
}

func (e *FramingError) Unwrap() error {
	return ErrFraming
}
