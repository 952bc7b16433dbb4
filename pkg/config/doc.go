// Package config loads application configuration from environment variables
// into tagged Go structs.
//
// It wraps `github.com/joho/godotenv` for .env files and
// `github.com/caarlos0/env/v11` for parsing:
//
//	type Config struct {
//	    MaxUploadSize string `env:"FORMDATA_MAX_UPLOAD_SIZE" envDefault:"2M"`
//	    TempDir       string `env:"FORMDATA_TEMP_DIR"`
//	}
//
//	if err := config.LoadEnv("./deploy/.env"); err != nil {
//	    log.Fatalf("loading env: %v", err)
//	}
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatalf("parsing env: %v", err)
//	}
//
// Errors can be compared with errors.Is against ErrParsingConfig,
// ErrLoadingEnvFile and ErrNilPointer.
package config
