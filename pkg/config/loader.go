package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// Load parses environment variables into the struct v points to, based on
// its `env` field tags. The default .env file in the working directory is
// loaded once per process before the first parse; a missing file is fine.
//
// Every call parses the environment again, so values set after a previous
// call are picked up.
//
// Example:
//
//	var cfg formdata.Config
//	if err := config.Load(&cfg); err != nil {
//		// Handle error
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		_ = godotenv.Load()
	})
	if v == nil {
		return ErrNilPointer
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// LoadEnv loads the given .env files into the process environment, or the
// default .env when no path is given. Variables already set are not
// overridden, and among the files the first one defining a variable wins.
func LoadEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("%w: %v", ErrLoadingEnvFile, err)
	}
	return nil
}
