package tempstore

import "errors"

var (
	// Location errors reported by Backend.Check
	ErrNoTmpDir  = errors.New("temporary storage location does not exist")
	ErrCantWrite = errors.New("temporary storage location is not writable")

	// ErrExists is returned by Backend.Create when the name is already taken.
	ErrExists = errors.New("temporary file already exists")

	ErrInvalidPath   = errors.New("invalid path") // Path outside the storage location
	ErrInvalidSize   = errors.New("invalid size value")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrSizeMismatch  = errors.New("content length does not match declared size")

	// I/O operation errors - wrapped with context for debugging
	ErrFailedToCreateFile = errors.New("failed to create file")
	ErrFailedToWriteFile  = errors.New("failed to write file")
	ErrFailedToDeleteFile = errors.New("failed to delete file")
	ErrFailedToStatPath   = errors.New("failed to stat path")
	ErrFailedToLoadConfig = errors.New("failed to load AWS config")

	// S3-specific errors for proper error classification
	ErrAccessDenied       = errors.New("access denied")
	ErrRequestTimeout     = errors.New("request timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrOperationCanceled  = errors.New("operation canceled")
)
