package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for an enrichment run.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Input: Path of the delimited file to enrich.
// - Output: Path of the delimited file batches are appended to.
// - Offset: Index of the first input row to process (resume offset).
// - Verbose: Whether progress is reported while running.
// - Delimiter: Field delimiter of both input and output.
// - Port: The port for the monitoring server, 0 disables it.
// - Provider: Reverse geocoding provider settings.
type Config struct {
	Env       string         `yaml:"env"`         // Env is the current environment: local, development, production.
	Input     string         `yaml:"input"`       // Input is the dataset to enrich.
	Output    string         `yaml:"output"`      // Output receives the enriched batches.
	Offset    int            `yaml:"offset"`      // Offset is the row index to resume from.
	Verbose   bool           `yaml:"verbose"`     // Verbose enables progress reporting.
	Delimiter rune           `yaml:"delimiter"`   // Delimiter separates fields in input and output.
	Port      int            `yaml:"health.port"` // Port is the monitoring server port.
	Provider  ProviderConfig `yaml:"provider"`    // Provider holds the geocoding provider configuration.
}

// ProviderConfig holds the reverse geocoding provider settings.
type ProviderConfig struct {
	Type      string        `yaml:"type"`       // Type selects the provider: nominatim, google, visicom.
	APIKey    string        `yaml:"key"`        // APIKey is required by google and visicom.
	RateLimit int           `yaml:"rate_limit"` // RateLimit is the number of requests per second.
	Timeout   time.Duration `yaml:"timeout"`    // Timeout bounds a single request.
	Language  string        `yaml:"language"`   // Language of the returned names.
}

// Validation errors.
var (
	ErrInvalidOffset    = errors.New("offset must be a non-negative integer")
	ErrInvalidDelimiter = errors.New("delimiter must be a single character")
)

const envPrefix = "ATLAS"

var defaults = map[string]string{
	"env":                 "production",
	"input":               "all_data.csv",
	"output":              "all_data_coord_features.csv",
	"offset":              "0",
	"verbose":             "false",
	"delimiter":           ",",
	"health.port":         "0",
	"provider.type":       "nominatim",
	"provider.key":        "",
	"provider.rate_limit": "1",
	"provider.timeout":    "10s",
	"provider.language":   "en",
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"env":         "env",
	"input":       "input",
	"output":      "output",
	"offset":      "offset",
	"verbose":     "verbose",
	"delimiter":   "delimiter",
	"health-port": "health.port",
	"provider":    "provider.type",
	"rate-limit":  "provider.rate_limit",
	"timeout":     "provider.timeout",
	"language":    "provider.language",
}

// RegisterFlags adds the run flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("env", defaults["env"], "environment: local, development, production")
	fs.StringP("input", "i", defaults["input"], "input file with Latitude and Longitude columns")
	fs.StringP("output", "o", defaults["output"], "output file the enriched batches are appended to")
	fs.Int("offset", 0, "index of the first row to process, rows before it are assumed written")
	fs.BoolP("verbose", "v", false, "report progress while running")
	fs.String("delimiter", defaults["delimiter"], "field delimiter of input and output")
	fs.Int("health-port", 0, "port of the /healthz and /metrics server, 0 disables it")
	fs.String("provider", defaults["provider.type"], "geocoding provider: nominatim, google, visicom")
	fs.Int("rate-limit", 1, "provider requests per second")
	fs.Duration("timeout", 10*time.Second, "timeout of a single provider request")
	fs.String("language", defaults["provider.language"], "preferred language of place names")
}

// Load builds the configuration from defaults, an optional .env file, ATLAS_*
// environment variables and, when fs is not nil, the flags set on the command line.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	offset, err := strconv.Atoi(v.GetString("offset"))
	if err != nil || offset < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOffset, v.GetString("offset"))
	}

	verbose, err := strconv.ParseBool(v.GetString("verbose"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse verbose flag: %w", err)
	}

	delimiter := v.GetString("delimiter")
	if utf8.RuneCountInString(delimiter) != 1 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDelimiter, delimiter)
	}
	comma, _ := utf8.DecodeRuneInString(delimiter)

	healthPort, err := strconv.Atoi(v.GetString("health.port"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse port for monitoring server: %w", err)
	}

	rateLimit, err := strconv.Atoi(v.GetString("provider.rate_limit"))
	if err != nil || rateLimit < 0 {
		return nil, fmt.Errorf("failed to parse provider rate limit %q", v.GetString("provider.rate_limit"))
	}

	timeout, err := time.ParseDuration(v.GetString("provider.timeout"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse provider timeout: %w", err)
	}

	return &Config{
		Env:       v.GetString("env"),
		Input:     v.GetString("input"),
		Output:    v.GetString("output"),
		Offset:    offset,
		Verbose:   verbose,
		Delimiter: comma,
		Port:      healthPort,
		Provider: ProviderConfig{
			Type:      v.GetString("provider.type"),
			APIKey:    v.GetString("provider.key"),
			RateLimit: rateLimit,
			Timeout:   timeout,
			Language:  v.GetString("provider.language"),
		},
	}, nil
}

// MustLoad is like Load but panics when the configuration is invalid.
func MustLoad(fs *pflag.FlagSet) *Config {
	cfg, err := Load(fs)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	return cfg
}
