package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration shared by the CLI drivers.
type Config struct {
	// Default MemoryPlay host, used when -h is not given. The drivers
	// that support discovery fall back to it only when IP is empty.
	Host Host `yaml:"host"`

	// Known audio output targets.
	Targets []Target `yaml:"targets"`

	// Preferred output target name.
	PreferredTarget string `yaml:"preferred_target,omitempty"`

	// External host finder program, invoked for discovery. One host
	// per output line: "IPV6 IFNO TARGET_NAME OUTPUT_NAME LOOPBACK".
	Finder FinderConfig `yaml:"finder"`

	// Transcode cache settings.
	Cache CacheConfig `yaml:"cache"`
}

// Host addresses a MemoryPlayHost control endpoint.
type Host struct {
	IP        string `yaml:"ip"`
	Port      string `yaml:"port,omitempty"` // default 19640
	Interface uint32 `yaml:"interface,omitempty"`
}

// Address joins IP and port into the "IP,PORT" form the session layer
// takes.
func (h Host) Address() string {
	if h.IP == "" {
		return ""
	}
	if h.Port == "" {
		return h.IP
	}
	return h.IP + "," + h.Port
}

// Target is a named audio output target.
type Target struct {
	Name      string `yaml:"name"`
	IP        string `yaml:"ip"`
	Interface uint32 `yaml:"interface,omitempty"`
}

// FinderConfig points at the external discovery helper.
type FinderConfig struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
}

// CacheConfig controls the transcode disk cache.
type CacheConfig struct {
	Directory string `yaml:"directory"`
	MaxSizeGB int    `yaml:"max_size_gb"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Host: Host{IP: "::1"},
		Cache: CacheConfig{
			Directory: "/tmp/memoryplayctl-cache",
			MaxSizeGB: 10,
		},
	}
}

// LoadConfig loads configuration from file, falling back to defaults
// when the file does not exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Host.IP == "" {
		cfg.Host = DefaultConfig().Host
	}
	if cfg.Cache.Directory == "" {
		cfg.Cache = DefaultConfig().Cache
	}
	return &cfg, nil
}

// SaveConfig saves configuration to file.
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetTarget returns a target by name, nil when absent.
func (c *Config) GetTarget(name string) *Target {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i]
		}
	}
	return nil
}

// GetPreferredTarget returns the preferred target, or the first one
// when no preference is set, or nil without targets.
func (c *Config) GetPreferredTarget() *Target {
	if c.PreferredTarget != "" {
		return c.GetTarget(c.PreferredTarget)
	}
	if len(c.Targets) > 0 {
		return &c.Targets[0]
	}
	return nil
}

// SetPreferredTarget sets the preferred target by name.
func (c *Config) SetPreferredTarget(name string) error {
	if c.GetTarget(name) == nil {
		return fmt.Errorf("target not found: %s", name)
	}
	c.PreferredTarget = name
	return nil
}
