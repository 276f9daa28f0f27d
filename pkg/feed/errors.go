package feed

import (
	"errors"
	"fmt"

	"github.com/erain9/itchbook/pkg/core"
	"github.com/erain9/itchbook/pkg/itch"
	"github.com/erain9/itchbook/pkg/reference"
)

// ErrorKind classifies a frame error.
type ErrorKind string

// Error kinds
const (
	KindFraming   ErrorKind = "framing"
	KindViolation ErrorKind = "violation"
	KindLookup    ErrorKind = "lookup"
	// KindInternal covers failures of the stores themselves.
	KindInternal ErrorKind = "internal"
)

// FrameError ties an error to the frame that raised it. Index is the 1-based
// frame position in the feed.
type FrameError struct {
	Index uint64
	Tag   byte
	Kind  ErrorKind
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (%s): %s: %v", e.Index, itch.TypeOf(e.Tag), e.Kind, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// kindOf classifies err, which is never nil.
func kindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, itch.ErrFraming):
		return KindFraming
	case errors.Is(err, core.ErrConsistencyViolation):
		return KindViolation
	case errors.Is(err, reference.ErrUnknownLocate),
		errors.Is(err, reference.ErrUnknownSymbol),
		errors.Is(err, reference.ErrDuplicateLocate),
		errors.Is(err, reference.ErrDuplicateSymbol),
		errors.Is(err, reference.ErrSymbolMismatch):
		return KindLookup
	default:
		return KindInternal
	}
}
