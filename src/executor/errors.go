package executor

import "errors"

var (
	ErrModelClientRequired = errors.New("model client is required")
	ErrStoreRequired       = errors.New("conversation store is required")

	// ErrSinkClosed is returned by Send once the sink was closed.
	ErrSinkClosed = errors.New("event sink is closed")

	// ErrImagesUnsupported rejects image input for a text only model.
	ErrImagesUnsupported = errors.New("model does not accept images")

	// ErrMaxRoundsExceeded ends a turn whose tool loop does not settle.
	ErrMaxRoundsExceeded = errors.New("maximum model rounds exceeded")
)
