package errors

import "errors"

var (
	ErrEngineUnavailable = errors.New("engine process is not running")
	ErrProtocolFailure   = errors.New("engine answered with failure status")
	ErrValidationFailure = errors.New("recovered move failed validation")
	ErrIOFailure         = errors.New("staging file operation failed")
	ErrGameNotFound      = errors.New("game not found")
	ErrInternal          = errors.New("internal error")
)
