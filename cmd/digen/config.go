package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envDevelopment = "development"
	envProduction  = "production"
)

type config struct {
	Env      string `env:"DIGEN_ENV" envDefault:"development"`
	LogLevel string `env:"DIGEN_LOG_LEVEL" envDefault:"info"`
	DIImport string `env:"DIGEN_DI_IMPORT"`
}

// loadConfig reads the optional dotenv files (".env" when none are given) and
// then parses the environment. Missing dotenv files are not an error.
func loadConfig(envFiles ...string) (config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}

	switch cfg.Env {
	case envDevelopment, envProduction:
	default:
		return config{}, fmt.Errorf("DIGEN_ENV must be %q or %q, got %q", envDevelopment, envProduction, cfg.Env)
	}
	return cfg, nil
}

// newLogger writes console logs in development and JSON logs in production.
func newLogger(cfg config, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("DIGEN_LOG_LEVEL: %w", err)
	}

	var enc zapcore.Encoder
	if cfg.Env == envProduction {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.TimeKey = ""
		enc = zapcore.NewConsoleEncoder(ec)
	}

	core := zapcore.NewCore(enc, zapcore.AddSync(w), level)
	return zap.New(core).Named("digen"), nil
}
