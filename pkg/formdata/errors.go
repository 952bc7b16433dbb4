package formdata

import "errors"

var (
	ErrNilStore      = errors.New("temporary file store is nil")
	ErrInvalidConfig = errors.New("invalid parser configuration")

	// Fatal parse errors. Per-part problems never surface as errors.
	ErrReadBody      = errors.New("failed to read request body")
	ErrTooManyFields = errors.New("too many form fields")
)
