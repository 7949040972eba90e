package exam

import "errors"

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrSessionEnded = errors.New("test already ended")
	ErrNotSubmitted = errors.New("test not yet submitted")
	ErrConflict     = errors.New("already exists")
)
