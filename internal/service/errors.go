package service

import "errors"

// Sentinel errors shared by the service layer and its stores. The HTTP
// layer maps them to status codes in one place.
var (
	ErrNotFound     = errors.New("todo not found")
	ErrUnauthorized = errors.New("caller identity missing")
	ErrForbidden    = errors.New("not authorized for this todo")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("concurrent update conflict")
)
