package domain

import "errors"

// Failure classes shared by the write and read paths. Callers classify with
// errors.Is; wrapping sites add symbol, timeframe and period context.
var (
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("version conflict")
	ErrIncomplete = errors.New("incomplete series")
)
