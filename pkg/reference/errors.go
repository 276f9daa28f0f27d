package reference

import "errors"

// Errors
var (
	ErrUnknownLocate   = errors.New("unknown stock locate")
	ErrUnknownSymbol   = errors.New("unknown symbol")
	ErrDuplicateLocate = errors.New("duplicate stock locate")
	ErrDuplicateSymbol = errors.New("symbol registered under another locate")
	ErrSymbolMismatch  = errors.New("symbol does not match stock locate")
)
