package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Network selects the Stellar network the backend talks about.
type Network string

const (
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet"
)

var (
	ErrMissingSupabaseURL     = errors.New("SUPABASE_URL is required")
	ErrMissingSupabaseAnonKey = errors.New("SUPABASE_ANON_KEY is required")
)

// Config holds all backend configuration loaded from environment variables.
type Config struct {
	Network         Network `env:"STELLAR_NETWORK" envDefault:"testnet"`
	SupabaseURL     string  `env:"SUPABASE_URL"`
	SupabaseAnonKey string  `env:"SUPABASE_ANON_KEY"`
	Port            int     `env:"PORT" envDefault:"3000"`

	// GRPCPort of 0 disables the gRPC health probe.
	GRPCPort int `env:"GRPC_PORT"`

	// AllowedOrigins left empty reflects any request origin.
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Tracing is exported only when OTelEndpoint is set and OTelEnabled holds.
	OTelEndpoint string `env:"QUICKEX_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"QUICKEX_OTEL_ENABLED" envDefault:"true"`
}

// Load reads configuration from the process environment and validates it.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the
// process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Network = Network(strings.ToLower(strings.TrimSpace(string(cfg.Network))))
	cfg.SupabaseURL = strings.TrimSpace(cfg.SupabaseURL)
	cfg.SupabaseAnonKey = strings.TrimSpace(cfg.SupabaseAnonKey)
	cfg.OTelEndpoint = strings.TrimSpace(cfg.OTelEndpoint)

	origins := cfg.AllowedOrigins[:0]
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	cfg.AllowedOrigins = origins

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.Network {
	case NetworkTestnet, NetworkMainnet:
	default:
		return fmt.Errorf("STELLAR_NETWORK must be %q or %q, got %q", NetworkTestnet, NetworkMainnet, c.Network)
	}

	if c.SupabaseURL == "" {
		return ErrMissingSupabaseURL
	}
	u, err := url.Parse(c.SupabaseURL)
	if err != nil {
		return fmt.Errorf("SUPABASE_URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("SUPABASE_URL must be an absolute http(s) URL, got %q", c.SupabaseURL)
	}
	if c.SupabaseAnonKey == "" {
		return ErrMissingSupabaseAnonKey
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("GRPC_PORT out of range: %d", c.GRPCPort)
	}
	if c.GRPCPort != 0 && c.GRPCPort == c.Port {
		return fmt.Errorf("GRPC_PORT must differ from PORT (%d)", c.Port)
	}

	if c.OTelEndpoint != "" {
		u, err := url.Parse(c.OTelEndpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("QUICKEX_OTEL_ENDPOINT must be an absolute URL, got %q", c.OTelEndpoint)
		}
	}
	return nil
}

// ListenAddr is the HTTP listen address derived from Port.
func (c *Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// TracingEnabled reports whether spans should be exported.
func (c *Config) TracingEnabled() bool {
	return c.OTelEnabled && c.OTelEndpoint != ""
}

// GRPCListenAddr is the gRPC listen address, or "" when the probe is disabled.
func (c *Config) GRPCListenAddr() string {
	if c.GRPCPort == 0 {
		return ""
	}
	return ":" + strconv.Itoa(c.GRPCPort)
}
