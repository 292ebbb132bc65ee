package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/Another0Noob/mangadex-progress/internal/mangadexapi"
)

const maxPageSize = 100

var errInvalidConfig = errors.New("invalid configuration")

// Config is the static process configuration.
type Config struct {
	API struct {
		BaseURL   string `yaml:"baseURL"`
		AuthURL   string `yaml:"authURL"`
		UserAgent string `yaml:"userAgent"`

		// Language is the translated language of feeds and aggregates, as a MangaDex language code.
		Language string `yaml:"language"`
		PageSize int    `yaml:"pageSize"`

		RawRequestDelay string        `yaml:"requestDelay"`
		RequestDelay    time.Duration `yaml:"-"`
		RawTimeout      string        `yaml:"timeout"`
		Timeout         time.Duration `yaml:"-"`
	} `yaml:"api"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = mangadexapi.DefaultBaseURL
	cfg.API.AuthURL = mangadexapi.DefaultAuthURL
	cfg.API.Language = "en"
	cfg.API.PageSize = maxPageSize
	cfg.API.RawRequestDelay = "1s"
	cfg.API.RawTimeout = "30s"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// Load reads the YAML file at path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.readYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) readYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path) // #nosec G304 -- Only loading a config file
	if os.IsNotExist(err) {
		log.Info().
			Str("path", path).
			Msg("No YAML configuration file found, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML from %s: %w", path, err)
	}

	log.Debug().
		Str("path", path).
		Msg("Loaded configuration")
	return nil
}

// Validate checks every field and fills the parsed durations.
func (cfg *Config) Validate() error {
	for name, raw := range map[string]string{"baseURL": cfg.API.BaseURL, "authURL": cfg.API.AuthURL} {
		u, err := url.ParseRequestURI(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: api.%s %q is not an http(s) URL", errInvalidConfig, name, raw)
		}
	}

	if _, err := language.Parse(cfg.API.Language); err != nil {
		return fmt.Errorf("%w: api.language %q: %w", errInvalidConfig, cfg.API.Language, err)
	}

	if cfg.API.PageSize < 1 || cfg.API.PageSize > maxPageSize {
		return fmt.Errorf("%w: api.pageSize must be between 1 and %d, got %d", errInvalidConfig, maxPageSize, cfg.API.PageSize)
	}

	var err error
	if cfg.API.RequestDelay, err = parseDuration("api.requestDelay", cfg.API.RawRequestDelay); err != nil {
		return err
	}
	if cfg.API.Timeout, err = parseDuration("api.timeout", cfg.API.RawTimeout); err != nil {
		return err
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log.level %q", errInvalidConfig, cfg.Log.Level)
	}

	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log.format %q", errInvalidConfig, cfg.Log.Format)
	}

	return nil
}

func parseDuration(name, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errInvalidConfig, name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", errInvalidConfig, name)
	}
	return d, nil
}

// ClientOptions translates the API section into client options.
func (cfg *Config) ClientOptions() []mangadexapi.Option {
	opts := []mangadexapi.Option{
		mangadexapi.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		mangadexapi.WithBaseURL(cfg.API.BaseURL),
		mangadexapi.WithAuthURL(cfg.API.AuthURL),
		mangadexapi.WithLanguage(cfg.API.Language),
		mangadexapi.WithPageSize(cfg.API.PageSize),
		mangadexapi.WithRequestDelay(cfg.API.RequestDelay),
		mangadexapi.WithLogger(log.Logger),
	}
	if cfg.API.UserAgent != "" {
		opts = append(opts, mangadexapi.WithUserAgent(cfg.API.UserAgent))
	}
	return opts
}
