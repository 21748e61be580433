package client

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config holds client settings loadable from a YAML file. All fields are
// optional except Endpoint; zero values fall back to the defaults applied
// by New.
type Config struct {
	// Endpoint is the SPARQL query endpoint URL.
	Endpoint string `yaml:"endpoint"`
	// UpdateEndpoint is the update endpoint URL (default: Endpoint).
	UpdateEndpoint string `yaml:"update_endpoint"`
	// Method is the HTTP method for queries, "GET" or "POST".
	Method string `yaml:"method"`
	// Timeout bounds each request (default: 30s).
	Timeout Duration `yaml:"timeout"`
	// Headers are sent verbatim with every request.
	Headers map[string]string `yaml:"headers"`
	// MaxResponseBytes caps response bodies read into memory.
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

// DefaultConfig returns a Config with the defaults New applies.
func DefaultConfig() *Config {
	return &Config{
		Method:           MethodPost,
		Timeout:          Duration(30 * time.Second),
		MaxResponseBytes: defaultMaxResponseBytes,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if _, err := url.Parse(c.Endpoint); err != nil {
		return fmt.Errorf("endpoint is not a valid URL: %w", err)
	}
	if c.Method != "" && c.Method != MethodGet && c.Method != MethodPost {
		return fmt.Errorf("method must be %q or %q", MethodGet, MethodPost)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.MaxResponseBytes < 0 {
		return fmt.Errorf("max_response_bytes must not be negative")
	}
	return nil
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Options converts the config into the option list New expects.
func (c *Config) Options() []Option {
	var opts []Option
	if c.Method != "" {
		opts = append(opts, WithMethod(c.Method))
	}
	if c.UpdateEndpoint != "" {
		opts = append(opts, WithUpdateEndpoint(c.UpdateEndpoint))
	}
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(time.Duration(c.Timeout)))
	}
	for k, v := range c.Headers {
		opts = append(opts, WithHeader(k, v))
	}
	if c.MaxResponseBytes > 0 {
		opts = append(opts, WithMaxResponseSize(c.MaxResponseBytes))
	}
	return opts
}
