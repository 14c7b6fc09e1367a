package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
)

// Environment holds deployment settings read from STORY_* variables
type Environment struct {
	Env            string        `envconfig:"ENV" default:"production"`
	APIURL         string        `envconfig:"API_URL"`
	Debug          bool          `envconfig:"DEBUG" default:"false"`
	LogFile        string        `envconfig:"LOG_FILE"`
	TelemetryFile  string        `envconfig:"TELEMETRY_FILE"`
	SpeechCommand  string        `envconfig:"SPEECH_CMD"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	MaxRetries     int           `envconfig:"MAX_RETRIES" default:"2"`
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	ToastDuration  time.Duration `envconfig:"TOAST_DURATION" default:"5s"`
}

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "STORY"

// LoadEnvironment reads STORY_* variables, after loading any of the given
// .env files that exist. With no files it tries ./.env.
func LoadEnvironment(envFiles ...string) (*Environment, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	var env Environment
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to load environment configuration: %w", err)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Validate checks value ranges
func (e *Environment) Validate() error {
	switch strings.ToLower(e.Env) {
	case "development", "production":
		e.Env = strings.ToLower(e.Env)
	default:
		return fmt.Errorf("STORY_ENV must be development or production (got %q)", e.Env)
	}
	if e.APIURL != "" {
		if err := ValidateAPIURL(e.APIURL); err != nil {
			return fmt.Errorf("STORY_API_URL: %w", err)
		}
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("STORY_MAX_RETRIES cannot be negative")
	}
	if e.RequestTimeout <= 0 {
		return fmt.Errorf("STORY_REQUEST_TIMEOUT must be positive")
	}
	if e.ToastDuration < 0 || e.RetryBaseDelay < 0 {
		return fmt.Errorf("durations cannot be negative")
	}
	return nil
}

// IsDevelopment reports whether development diagnostics are enabled
func (e *Environment) IsDevelopment() bool {
	return e.Env == "development"
}

// LoggingConfig derives the slog configuration
func (e *Environment) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	if e.LogFile != "" {
		cfg.Output = e.LogFile
	}
	if e.Debug {
		cfg.Level = logging.DebugLevel
		cfg.Format = "json"
	}
	return cfg
}

// Apply overlays environment settings on a profile
func (e *Environment) Apply(profile *interfaces.Profile) {
	if e.APIURL != "" {
		profile.APIURL = e.APIURL
	}
	if e.SpeechCommand != "" {
		profile.Speech.Command = e.SpeechCommand
	}
}
