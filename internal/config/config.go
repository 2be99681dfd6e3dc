// Package config handles configuration parsing for remote-files-mcp.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/acolita/remote-files-mcp/internal/logging"
	"github.com/acolita/remote-files-mcp/internal/ports"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath returns the default config file path:
// $XDG_CONFIG_HOME/remote-files-mcp/config.yaml or ~/.config/remote-files-mcp/config.yaml
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "remote-files-mcp", "config.yaml")
}

// Config represents the top-level configuration.
type Config struct {
	Profiles  []Profile       `yaml:"profiles"`
	Transport TransportConfig `yaml:"transport"`
	Recycle   RecycleConfig   `yaml:"recycle"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Profile is a saved connection.
type Profile struct {
	Name          string `yaml:"name" json:"name"`
	Host          string `yaml:"host" json:"host"`
	Port          int    `yaml:"port,omitempty" json:"port,omitempty"`
	User          string `yaml:"user" json:"user"`
	IdentityFile  string `yaml:"identity_file,omitempty" json:"identity_file,omitempty"`
	PasswordEnv   string `yaml:"password_env,omitempty" json:"password_env,omitempty"`     // env var containing the SSH password
	PassphraseEnv string `yaml:"passphrase_env,omitempty" json:"passphrase_env,omitempty"` // env var containing the key passphrase
	StartPath     string `yaml:"start_path,omitempty" json:"start_path,omitempty"`         // directory to change to after connecting
}

// TransportConfig defines SSH and SFTP settings.
type TransportConfig struct {
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	OperationTimeout time.Duration `yaml:"operation_timeout"` // per tool call; 0 disables
	MaxPacket        int           `yaml:"max_packet"`
	ConcurrentReads  bool          `yaml:"concurrent_reads"`
	KnownHosts       string        `yaml:"known_hosts"` // empty or missing file accepts any host key
}

// RecycleConfig defines the recycle bin.
type RecycleConfig struct {
	DirName string `yaml:"dir_name"` // directory under the remote home
}

// SecurityConfig defines security settings.
type SecurityConfig struct {
	CommandBlocklist    []string      `yaml:"command_blocklist"`     // Regex patterns for blocked commands
	CommandAllowlist    []string      `yaml:"command_allowlist"`     // If set, only these patterns allowed
	MaxAuthFailures     int           `yaml:"max_auth_failures"`     // Max failed auth attempts before lockout
	AuthLockoutDuration time.Duration `yaml:"auth_lockout_duration"` // Duration of auth lockout
	UseKeyring          bool          `yaml:"use_keyring"`           // Use OS keyring for credential storage
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // "debug", "info", "warn", "error"
	Sanitize bool   `yaml:"sanitize"` // sanitize sensitive data from logs
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Transport: TransportConfig{
			ConnectTimeout:   30 * time.Second,
			OperationTimeout: 2 * time.Minute,
			MaxPacket:        32768,
			ConcurrentReads:  true,
			KnownHosts:       "~/.ssh/known_hosts",
		},
		Recycle: RecycleConfig{
			DirName: ".guios_recycle",
		},
		Security: SecurityConfig{
			MaxAuthFailures:     5,
			AuthLockoutDuration: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Sanitize: true,
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults.
// An optional FileSystem can be passed for testing; if omitted, the real OS is used.
func Load(path string, fsys ...ports.FileSystem) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	var data []byte
	var err error
	if len(fsys) > 0 && fsys[0] != nil {
		data, err = fsys[0].ReadFile(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration and fills in defaults for zero values.
func (c *Config) Validate() error {
	defaults := DefaultConfig()
	var errs []error

	seen := make(map[string]bool)
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if err := p.validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("profile %q defined more than once", p.Name))
		}
		seen[p.Name] = true
		if p.Port == 0 {
			p.Port = 22
		}
	}

	if c.Transport.ConnectTimeout < 0 || c.Transport.OperationTimeout < 0 {
		errs = append(errs, errors.New("transport timeouts must not be negative"))
	}
	if c.Transport.ConnectTimeout == 0 {
		c.Transport.ConnectTimeout = defaults.Transport.ConnectTimeout
	}
	if c.Transport.MaxPacket <= 0 {
		c.Transport.MaxPacket = defaults.Transport.MaxPacket
	}

	if c.Recycle.DirName == "" {
		c.Recycle.DirName = defaults.Recycle.DirName
	}
	if strings.ContainsAny(c.Recycle.DirName, `/\`) || c.Recycle.DirName == "." || c.Recycle.DirName == ".." {
		errs = append(errs, fmt.Errorf("recycle dir_name %q must be a single path element", c.Recycle.DirName))
	}

	if c.Security.MaxAuthFailures <= 0 {
		c.Security.MaxAuthFailures = defaults.Security.MaxAuthFailures
	}
	if c.Security.AuthLockoutDuration <= 0 {
		c.Security.AuthLockoutDuration = defaults.Security.AuthLockoutDuration
	}

	if err := logging.ValidateLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	} else if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}

	return errors.Join(errs...)
}

func (p Profile) validate() error {
	switch {
	case p.Name == "":
		return errors.New("profile name is required")
	case p.Host == "":
		return fmt.Errorf("profile %q: host is required", p.Name)
	case p.User == "":
		return fmt.Errorf("profile %q: user is required", p.Name)
	case p.Port < 0 || p.Port > 65535:
		return fmt.Errorf("profile %q: port %d out of range", p.Name, p.Port)
	}
	return nil
}

// Profile returns the profile with the given name.
func (c *Config) Profile(name string) (Profile, bool) {
	i := slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Name == name })
	if i < 0 {
		return Profile{}, false
	}
	return c.Profiles[i], true
}

// AddProfile adds a profile to the configuration.
// Returns an error if a profile with the same name already exists.
func (c *Config) AddProfile(p Profile) error {
	if err := p.validate(); err != nil {
		return err
	}
	if _, ok := c.Profile(p.Name); ok {
		return fmt.Errorf("profile %q already exists", p.Name)
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// RemoveProfile deletes the named profile. It reports whether one was removed.
func (c *Config) RemoveProfile(name string) bool {
	n := len(c.Profiles)
	c.Profiles = slices.DeleteFunc(c.Profiles, func(p Profile) bool { return p.Name == name })
	return len(c.Profiles) != n
}

// Save writes the configuration to a YAML file.
// An optional FileSystem can be passed for testing; if omitted, the real OS is used.
func Save(cfg *Config, path string, fsys ...ports.FileSystem) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if len(fsys) > 0 && fsys[0] != nil {
		if err := fsys[0].MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		return fsys[0].WriteFile(path, data, 0600)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}
