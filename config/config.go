// Package config loads the EmbedDB configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nickyhof/EmbedDB/core"
	"github.com/nickyhof/EmbedDB/migrate"
)

// Authentication methods accepted by the gateway.
const (
	AuthNone = "none"
	AuthMD5  = "md5"
	AuthJWT  = "jwt"
)

const (
	DefaultHost      = "127.0.0.1"
	DefaultPort      = 5432
	DefaultPortRange = 100
	DefaultRoleClaim = "role"
)

type Config struct {
	// DataDir holds the database file. Empty or "memory://" keeps the
	// database in memory.
	DataDir string `yaml:"data_dir"`

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// PortRange is how many ports above Port are tried when Port is taken.
	PortRange int `yaml:"port_range"`

	// ShadowPort is where the dev command exposes the shadow database.
	// Defaults to Port+1.
	ShadowPort int `yaml:"shadow_port"`

	Schema         string `yaml:"schema"`
	IsolationLevel string `yaml:"isolation_level"`
	LogLevel       string `yaml:"log_level"`

	Auth       Auth       `yaml:"auth"`
	Migrations Migrations `yaml:"migrations"`
}

type Auth struct {
	Method string `yaml:"method"`
	Role   string `yaml:"role"`

	// PasswordHash is md5<hex(md5(password + role))>.
	PasswordHash string `yaml:"password_hash"`

	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
	RoleClaim string `yaml:"role_claim"`
}

type Migrations struct {
	// Source is a migration location, see migrate.Open. Empty disables
	// migrations at startup.
	Source string            `yaml:"source"`
	S3     migrate.S3Config  `yaml:"s3"`
	Git    migrate.GitConfig `yaml:"git"`
}

var md5Credential = regexp.MustCompile(`^md5[0-9a-f]{32}$`)

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.PortRange == 0 {
		cfg.PortRange = DefaultPortRange
	}
	if cfg.ShadowPort == 0 {
		cfg.ShadowPort = cfg.Port + 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Auth.Method == "" {
		cfg.Auth.Method = AuthNone
	}
	if cfg.Auth.RoleClaim == "" {
		cfg.Auth.RoleClaim = DefaultRoleClaim
	}
}

// Validate checks the values that defaults cannot fix.
func (cfg *Config) Validate() error {
	if err := validPort("port", cfg.Port); err != nil {
		return err
	}
	if err := validPort("shadow_port", cfg.ShadowPort); err != nil {
		return err
	}
	if cfg.PortRange < 0 {
		return fmt.Errorf("port_range must not be negative, got %d", cfg.PortRange)
	}
	if cfg.IsolationLevel != "" {
		if _, err := core.ParseIsolationLevel(cfg.IsolationLevel); err != nil {
			return err
		}
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return err
	}

	auth := cfg.Auth
	switch auth.Method {
	case AuthNone:
	case AuthMD5:
		if auth.Role == "" {
			return errors.New("auth.role is required for md5 auth")
		}
		if !md5Credential.MatchString(auth.PasswordHash) {
			return errors.New("auth.password_hash must be md5 followed by 32 lowercase hex digits")
		}
	case AuthJWT:
		if auth.JWTSecret == "" {
			return errors.New("auth.jwt_secret is required for jwt auth")
		}
	default:
		return fmt.Errorf("unknown auth method: %q", auth.Method)
	}
	return nil
}

func validPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

// Isolation returns the configured default isolation level, or nil.
func (cfg *Config) Isolation() (*core.IsolationLevel, error) {
	if cfg.IsolationLevel == "" {
		return nil, nil
	}
	level, err := core.ParseIsolationLevel(cfg.IsolationLevel)
	if err != nil {
		return nil, err
	}
	return &level, nil
}

func (cfg *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return 0, fmt.Errorf("unknown log level: %q", cfg.LogLevel)
	}
	return level, nil
}

func (cfg *Config) MigrateOptions() migrate.Options {
	return migrate.Options{S3: cfg.Migrations.S3, Git: cfg.Migrations.Git}
}
