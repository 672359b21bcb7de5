package types

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrInvalidEngineID          = errors.New("invalid engine ID")
	ErrInvalidEngineName        = errors.New("invalid engine name")
	ErrInvalidAPIHost           = errors.New("invalid API host")
	ErrMissingAPIKey            = errors.New("missing API key")
	ErrMissingBasicAuthPassword = errors.New("missing basic auth password")

	// Query errors
	ErrInvalidQuery = errors.New("invalid search query")
	ErrEmptyQuery   = errors.New("empty search query")
	ErrQueryTooLong = errors.New("query too long")
	ErrNoEngines    = errors.New("no engines selected")

	// Engine errors
	ErrEngineNotFound    = errors.New("engine not found")
	ErrEngineRateLimited = errors.New("engine rate limited")
	ErrEngineTimeout     = errors.New("engine timeout")
	ErrAllEnginesFailed  = errors.New("all engines failed")

	// Response errors
	ErrInvalidResponse = errors.New("invalid response from engine")
)

// EngineError wraps engine-specific errors
type EngineError struct {
	Engine  string
	Code    string
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Engine, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Engine, e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
