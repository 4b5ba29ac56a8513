// Package config loads the YAML configuration of the map server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hexmap/internal/world"
)

// maxLevel is the largest elevation or water level a saved map can hold.
const maxLevel = 255

// Config holds all server configuration
type Config struct {
	Map     MapConfig     `yaml:"map"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Search  SearchConfig  `yaml:"search"`
	Engine  EngineConfig  `yaml:"engine"`
}

// MapConfig describes the map created at startup
type MapConfig struct {
	Width         int   `yaml:"width"`
	Height        int   `yaml:"height"`
	Seed          int64 `yaml:"seed"`     // 0 picks a random seed
	Generate      bool  `yaml:"generate"` // false starts from a flat map
	SeaLevel      int   `yaml:"sea_level"`
	MountainLevel int   `yaml:"mountain_level"`
	Rivers        int   `yaml:"rivers"`
}

// ServerConfig holds HTTP settings
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`

	// OpenAdmin serves the editing endpoints without an admin key. It is
	// meant for local use and cannot be combined with a "*" CORS origin.
	OpenAdmin bool `yaml:"open_admin"`
}

// StorageConfig holds map library settings
type StorageConfig struct {
	DBPath        string `yaml:"db_path"`
	AutosaveTicks int    `yaml:"autosave_ticks"` // 0 disables autosave
	ExportDir     string `yaml:"export_dir"`
}

// SearchConfig holds path search settings
type SearchConfig struct {
	DefaultSpeed       int `yaml:"default_speed"`
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
}

// EngineConfig holds tick loop settings
type EngineConfig struct {
	TickMS int `yaml:"tick_ms"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := newConfig()
	cfg.Map.Generate = true
	cfg.applyDefaults()
	return cfg
}

// newConfig presets the settings for which zero is a valid choice, so a
// file can still set them to zero.
func newConfig() *Config {
	gen := world.DefaultGenConfig()
	cfg := &Config{}
	cfg.Map.SeaLevel = gen.WaterLevel
	cfg.Map.Rivers = gen.Rivers
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration and fills in defaults.
func Parse(data []byte) (*Config, error) {
	cfg := newConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	gen := world.DefaultGenConfig()

	if cfg.Map.Width == 0 {
		cfg.Map.Width = world.DefaultCellCountX
	}
	if cfg.Map.Height == 0 {
		cfg.Map.Height = world.DefaultCellCountZ
	}
	if cfg.Map.MountainLevel == 0 {
		cfg.Map.MountainLevel = gen.MaxElevation
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "data/hexmap.db"
	}
	if cfg.Storage.ExportDir == "" {
		cfg.Storage.ExportDir = "data/export"
	}
	if cfg.Search.DefaultSpeed == 0 {
		cfg.Search.DefaultSpeed = 24
	}
	if cfg.Search.RateLimitPerMinute == 0 {
		cfg.Search.RateLimitPerMinute = 120
	}
	if cfg.Engine.TickMS == 0 {
		cfg.Engine.TickMS = 200
	}
}

// Validate reports settings the server cannot run with.
func (cfg *Config) Validate() error {
	if !world.ValidSize(cfg.Map.Width, cfg.Map.Height) {
		return fmt.Errorf("map size %dx%d must be a positive multiple of %dx%d",
			cfg.Map.Width, cfg.Map.Height, world.ChunkSizeX, world.ChunkSizeZ)
	}
	if cfg.Map.SeaLevel < 0 || cfg.Map.MountainLevel <= 0 || cfg.Map.Rivers < 0 {
		return fmt.Errorf("map levels must not be negative")
	}
	if cfg.Map.SeaLevel > maxLevel || cfg.Map.MountainLevel > maxLevel {
		return fmt.Errorf("sea_level and mountain_level must be at most %d", maxLevel)
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	if cfg.Storage.AutosaveTicks < 0 {
		return fmt.Errorf("autosave_ticks must not be negative")
	}
	if cfg.Search.DefaultSpeed < 0 || cfg.Search.RateLimitPerMinute < 0 {
		return fmt.Errorf("search settings must not be negative")
	}
	if cfg.Server.OpenAdmin {
		for _, origin := range cfg.Server.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("open_admin cannot be combined with cors_origins \"*\"")
			}
		}
	}
	if cfg.Engine.TickMS < 0 {
		return fmt.Errorf("tick_ms must not be negative")
	}
	return nil
}

// GenConfig returns the generation parameters of the startup map.
func (cfg *Config) GenConfig() world.GenConfig {
	return world.GenConfig{
		Seed:         cfg.Map.Seed,
		MaxElevation: cfg.Map.MountainLevel,
		WaterLevel:   cfg.Map.SeaLevel,
		Rivers:       cfg.Map.Rivers,
	}
}
