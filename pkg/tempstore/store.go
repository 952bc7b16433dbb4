package tempstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultMaxSize mirrors the common 2M upload limit.
	DefaultMaxSize int64 = 2 << 20

	// DefaultMaxFilenameRetries bounds name generation when names collide.
	DefaultMaxFilenameRetries = 10

	namePrefix = "file_"
)

// Code is the per-file upload status. Values match the legacy numeric
// upload error codes so they can be passed through unchanged.
type Code int

const (
	CodeOK           Code = 0
	CodeSizeExceeded Code = 1
	CodeNoTmpDir     Code = 6
	CodeCantWrite    Code = 7
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "ok"
	case CodeSizeExceeded:
		return "size exceeded"
	case CodeNoTmpDir:
		return "no temporary directory"
	case CodeCantWrite:
		return "can't write"
	default:
		return "code(" + strconv.Itoa(int(c)) + ")"
	}
}

// Outcome is the result of storing one file. Path is set only for CodeOK.
// Err carries the underlying cause of a failed store for diagnostics.
type Outcome struct {
	Code Code
	Path string
	Err  error
}

// Backend is a temporary storage location.
type Backend interface {
	// Check reports ErrNoTmpDir when the location is missing and
	// ErrCantWrite when it does not accept writes.
	Check(ctx context.Context) error
	// Create stores content under name without overwriting anything and
	// returns the stored path. It returns ErrExists when name is taken.
	Create(ctx context.Context, name string, content []byte) (string, error)
	// Remove deletes a path previously returned by Create.
	Remove(ctx context.Context, path string) error
}

// Store writes uploaded file contents into a Backend under fresh names,
// enforcing the maximum upload size.
// A Store holds no per-request state and is safe for concurrent use when
// its Backend is.
type Store struct {
	backend Backend
	maxSize int64
	retries int
	newName func() string
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSize sets the largest accepted file in bytes. Zero or a negative
// value disables the limit.
func WithMaxSize(n int64) Option {
	return func(s *Store) {
		s.maxSize = n
	}
}

// WithMaxFilenameRetries sets how many fresh names are tried before giving
// up with CodeCantWrite. Values below 1 are ignored.
func WithMaxFilenameRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.retries = n
		}
	}
}

// WithNameGenerator replaces the random file name generator.
// Useful for testing collisions.
func WithNameGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newName = fn
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store on top of backend.
func New(backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: backend is nil", ErrInvalidConfig)
	}

	s := &Store{
		backend: backend,
		maxSize: DefaultMaxSize,
		retries: DefaultMaxFilenameRetries,
		newName: randomName,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// MaxSize returns the configured limit in bytes, 0 when unlimited.
func (s *Store) MaxSize() int64 {
	if s.maxSize < 0 {
		return 0
	}
	return s.maxSize
}

// Save stores content and reports the outcome. size is the full length of
// the uploaded file; content may be shorter only when size exceeds MaxSize,
// which lets callers stop buffering oversized uploads early.
//
// Checks run in order: location exists, location writable, size limit.
// Nothing is written unless all of them pass.
func (s *Store) Save(ctx context.Context, content []byte, size int64) Outcome {
	if err := s.backend.Check(ctx); err != nil {
		if errors.Is(err, ErrNoTmpDir) {
			return Outcome{Code: CodeNoTmpDir, Err: err}
		}
		return Outcome{Code: CodeCantWrite, Err: err}
	}

	if limit := s.MaxSize(); limit > 0 && size > limit {
		return Outcome{
			Code: CodeSizeExceeded,
			Err:  fmt.Errorf("file size %d bytes exceeds %d bytes limit", size, limit),
		}
	}
	if int64(len(content)) != size {
		return Outcome{Code: CodeCantWrite, Err: ErrSizeMismatch}
	}

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		name := s.newName()
		path, err := s.backend.Create(ctx, name, content)
		if err == nil {
			return Outcome{Code: CodeOK, Path: path}
		}
		if !errors.Is(err, ErrExists) {
			return Outcome{Code: CodeCantWrite, Err: err}
		}
		lastErr = err
		s.logger.DebugContext(ctx, "temporary file name taken",
			slog.String("name", name),
			slog.Int("attempt", attempt),
		)
	}

	return Outcome{
		Code: CodeCantWrite,
		Err:  fmt.Errorf("no free name after %d attempts: %w", s.retries, lastErr),
	}
}

// Remove deletes a stored file.
func (s *Store) Remove(ctx context.Context, path string) error {
	return s.backend.Remove(ctx, path)
}

// NewRegistry starts an empty registry of files stored through s.
func (s *Store) NewRegistry() *Registry {
	return &Registry{store: s}
}

// randomName returns an opaque, collision-resistant file name.
func randomName() string {
	return namePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
