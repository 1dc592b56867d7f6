package errors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	ErrConflict = errors.New("conflict")
	ErrTooMany  = errors.New("too many requests")
	ErrInternal = errors.New("internal")
	// ErrProvider marks failures of external AI providers (embedding or
	// summarization calls), including malformed payloads.
	ErrProvider = errors.New("provider error")
	// ErrStore marks datastore failures.
	ErrStore = errors.New("store error")
	// ErrConfig marks missing or incomplete provider configuration. Unlike
	// ErrProvider and ErrStore it aborts the whole operation.
	ErrConfig = errors.New("configuration error")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsProvider(err error) bool {
	return errors.Is(err, ErrProvider)
}

func IsStore(err error) bool {
	return errors.Is(err, ErrStore)
}

func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}
