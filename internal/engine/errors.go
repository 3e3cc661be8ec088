package engine

import (
	"errors"

	"github.com/tartampluch/go-agenda/internal/config"
)

// Sentinel errors returned by the engine. Callers match them with errors.Is;
// the returned errors usually wrap them with the offending value.
var (
	ErrMalformedDate     = errors.New(config.ErrMalformedDate)
	ErrMalformedTime     = errors.New(config.ErrMalformedTime)
	ErrInvalidDuration   = errors.New(config.ErrInvalidDuration)
	ErrInvalidStatus     = errors.New(config.ErrInvalidStatus)
	ErrInvalidTransition = errors.New(config.ErrInvalidTransition)
	ErrNotFound          = errors.New(config.ErrNotFound)
	ErrInvalidViewMode   = errors.New(config.ErrInvalidViewMode)
	ErrUnknownAction     = errors.New(config.ErrUnknownAction)
)
