package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the file. They are never
// written back to disk.
const (
	EnvAPIAddr = "CAMERAAPITEST_API_ADDR"
	EnvSeed    = "CAMERAAPITEST_SEED"
	EnvDBPath  = "CAMERAAPITEST_DB_PATH"
)

// Config holds the application configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	DB        DBConfig        `yaml:"db"`
	Server    ServerConfig    `yaml:"server"`
	Extension ExtensionConfig `yaml:"extension"`
	Host      HostConfig      `yaml:"host"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server LogSettings `yaml:"server"`
	Events LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds journal settings. An empty path disables the journal.
type DBConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// ExtensionConfig holds the camera test tunables. This section is hot-reloaded.
type ExtensionConfig struct {
	RootCommand   string     `yaml:"root_command"`
	ResetDelay    Duration   `yaml:"reset_delay"`
	CameraOffset  mgl32.Vec3 `yaml:"camera_offset,flow"`
	FreeCamHeight float32    `yaml:"free_cam_height"`
	LockOwner     string     `yaml:"lock_owner"`
	Seed          uint64     `yaml:"seed"`
}

// LockOwnerID parses LockOwner. An empty owner is the nil UUID.
func (e ExtensionConfig) LockOwnerID() (uuid.UUID, error) {
	if e.LockOwner == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(e.LockOwner)
}

// HostConfig describes the in-memory host.
type HostConfig struct {
	Players []PlayerConfig `yaml:"players"`
}

// PlayerConfig is a player connected at startup.
type PlayerConfig struct {
	Name     string     `yaml:"name"`
	Position mgl32.Vec3 `yaml:"position,flow"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "logs/server.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "logs/events.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path:      "data/journal.db",
			Retention: Duration(7 * Day),
		},
		Server: ServerConfig{
			Address: "localhost:1925",
		},
		Extension: ExtensionConfig{
			RootCommand:   "apitest",
			ResetDelay:    Duration(15 * time.Second),
			CameraOffset:  mgl32.Vec3{10, 10, 10},
			FreeCamHeight: 10,
			LockOwner:     uuid.Nil.String(),
			Seed:          0,
		},
		Host: HostConfig{
			Players: []PlayerConfig{
				{Name: "Alex", Position: mgl32.Vec3{0, 64, 0}},
				{Name: "Steve", Position: mgl32.Vec3{100, 70, -20}},
			},
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Environment overrides are applied after the file but never saved.
func Load(path string) (*Config, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("failed to save config file: %w", err)
		}
	}

	return Read(path)
}

// Read parses the file at path on top of the defaults, applies environment
// overrides and validates the result. It never writes.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.DB.Path = os.ExpandEnv(cfg.DB.Path)
	cfg.Log.Server.Path = os.ExpandEnv(cfg.Log.Server.Path)
	cfg.Log.Events.Path = os.ExpandEnv(cfg.Log.Events.Path)

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if addr := os.Getenv(EnvAPIAddr); addr != "" {
		cfg.Server.Address = addr
	}
	if s := os.Getenv(EnvSeed); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", EnvSeed, s, err)
		}
		cfg.Extension.Seed = seed
	}
	// An explicitly empty path disables the journal.
	if p, ok := os.LookupEnv(EnvDBPath); ok {
		cfg.DB.Path = p
	}
	return nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	root := c.Extension.RootCommand
	if root == "" || strings.ContainsAny(root, " \t/") {
		return fmt.Errorf("invalid root_command '%s': must be a single word without slashes", root)
	}
	if c.Extension.ResetDelay < 0 {
		return fmt.Errorf("invalid reset_delay '%s': must not be negative", c.Extension.ResetDelay)
	}
	if c.DB.Retention < 0 {
		return fmt.Errorf("invalid db.retention '%s': must not be negative", c.DB.Retention)
	}
	if _, err := c.Extension.LockOwnerID(); err != nil {
		return fmt.Errorf("invalid lock_owner '%s': %w", c.Extension.LockOwner, err)
	}
	seen := make(map[string]bool, len(c.Host.Players))
	for i, p := range c.Host.Players {
		if p.Name == "" {
			return fmt.Errorf("host.players[%d]: name cannot be empty", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("host.players[%d]: duplicate name '%s'", i, p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Camera API Test Configuration
# -----------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# The extension section is reloaded while running.

`)
	data = append(header, data...)

	reOwner := regexp.MustCompile(`(?m)^(\s+)lock_owner:`)
	data = reOwner.ReplaceAll(data, []byte("${1}# UUID owning the input locks placed by the input command\n${1}lock_owner:"))

	reSeed := regexp.MustCompile(`(?m)^(\s+)seed:`)
	data = reSeed.ReplaceAll(data, []byte("${1}# 0 picks a random seed at startup\n${1}seed:"))

	reDB := regexp.MustCompile(`(?m)^(\s+)path: (.*journal.*)$`)
	data = reDB.ReplaceAll(data, []byte("${1}# Empty disables the journal\n${1}path: ${2}"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
