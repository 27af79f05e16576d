package config

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var defaultEnvLoaded sync.Once

// Load parses environment variables into the provided configuration struct.
//
// The default .env file is loaded once per process before the first parse;
// a missing .env file is not an error. Struct fields are bound with `env:`
// tags the same way across every component config in this repository.
//
// Example:
//
//	type PaddleConfig struct {
//		VendorID   string `env:"PADDLE_VENDOR_ID,required"`
//		VendorCode string `env:"PADDLE_VENDOR_AUTH_CODE,required"`
//	}
//
//	var cfg PaddleConfig
//	if err := config.Load(&cfg); err != nil {
//		// Handle error
//	}
func Load[T any](v *T) error {
	defaultEnvLoaded.Do(func() {
		// Ignore errors - the .env file might not exist and that's ok
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

// MustLoad is like Load but panics on failure.
// Misconfiguration should prevent startup rather than surface as runtime errors.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}
