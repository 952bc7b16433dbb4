package formdata

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrymomot/restform/pkg/tempstore"
)

// Config holds environment driven parser settings. Load it with
// config.Load from the config package.
type Config struct {
	MaxUploadSize      string   `env:"FORMDATA_MAX_UPLOAD_SIZE" envDefault:"2M"`
	TempDir            string   `env:"FORMDATA_TEMP_DIR"`
	MaxFilenameRetries int      `env:"FORMDATA_MAX_FILENAME_RETRIES" envDefault:"10"`
	SkipMethods        []string `env:"FORMDATA_SKIP_METHODS" envSeparator:"," envDefault:"GET,POST"`
	MaxFields          int      `env:"FORMDATA_MAX_FIELDS" envDefault:"0"`
	BufferSize         int      `env:"FORMDATA_BUFFER_SIZE" envDefault:"65536"`

	// Temporary files go to this bucket instead of TempDir when set.
	S3Bucket         string `env:"FORMDATA_S3_BUCKET"`
	S3Region         string `env:"FORMDATA_S3_REGION"`
	S3Endpoint       string `env:"FORMDATA_S3_ENDPOINT"`
	S3Prefix         string `env:"FORMDATA_S3_PREFIX" envDefault:"tmp/"`
	S3AccessKeyID    string `env:"FORMDATA_S3_ACCESS_KEY_ID"`
	S3SecretKey      string `env:"FORMDATA_S3_SECRET_KEY"`
	S3ForcePathStyle bool   `env:"FORMDATA_S3_FORCE_PATH_STYLE"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxUploadSize:      "2M",
		MaxFilenameRetries: tempstore.DefaultMaxFilenameRetries,
		SkipMethods:        []string{"GET", "POST"},
		BufferSize:         DefaultBufferSize,
		S3Prefix:           "tmp/",
	}
}

// NewFromConfig builds the storage backend described by cfg and a Parser
// on top of it. opts are applied after the settings taken from cfg.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Parser, error) {
	maxSize, err := tempstore.ParseSize(cfg.MaxUploadSize)
	if err != nil {
		return nil, fmt.Errorf("%w: max upload size: %v", ErrInvalidConfig, err)
	}

	p := newParser(append([]Option{
		WithSkipMethods(cfg.SkipMethods...),
		WithMaxFields(cfg.MaxFields),
		WithBufferSize(cfg.BufferSize),
	}, opts...))

	backend, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	p.store, err = tempstore.New(backend,
		tempstore.WithMaxSize(maxSize),
		tempstore.WithMaxFilenameRetries(cfg.MaxFilenameRetries),
		tempstore.WithLogger(p.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return p, nil
}

func newBackend(ctx context.Context, cfg Config) (tempstore.Backend, error) {
	if cfg.S3Bucket != "" {
		b, err := tempstore.NewS3Backend(ctx, tempstore.S3Config{
			Bucket:         cfg.S3Bucket,
			Region:         cfg.S3Region,
			AccessKeyID:    cfg.S3AccessKeyID,
			SecretKey:      cfg.S3SecretKey,
			Endpoint:       cfg.S3Endpoint,
			Prefix:         cfg.S3Prefix,
			ForcePathStyle: cfg.S3ForcePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	dir := cfg.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	b, err := tempstore.NewLocalBackend(dir)
	if err != nil {
		return nil, err
	}
	return b, nil
}
