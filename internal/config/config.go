// Package config loads the zonekit server configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Server holds all configuration for the zoned server binary.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Logging
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Zone definition storage. When disabled the server starts from
	// the snapshot file (if any) or an empty zone set.
	Database DatabaseConfig `yaml:"database"`

	// SnapshotPath is a gzip JSON zone snapshot loaded at startup when
	// the database is disabled. Empty disables snapshot loading.
	SnapshotPath string `yaml:"snapshot_path"`

	Engine Engine `yaml:"engine"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Engine holds the evaluation loop tuning knobs.
type Engine struct {
	TickIntervalMs   int     `yaml:"tick_interval_ms"`
	QueryRange       float64 `yaml:"query_range"`
	DeltaThreshold   float64 `yaml:"delta_threshold"`
	JitterThreshold  float64 `yaml:"jitter_threshold"`
	MaxChecksPerTick int     `yaml:"max_checks_per_tick"`
	EvictAfterMisses int     `yaml:"evict_after_misses"`

	CacheCapacity    int     `yaml:"cache_capacity"`
	CacheTTLMs       int     `yaml:"cache_ttl_ms"`
	CacheBucketSize  float64 `yaml:"cache_bucket_size"`
	CacheRangeBucket float64 `yaml:"cache_range_bucket"`

	// Index: rtree, grid or quadtree.
	Index           string         `yaml:"index"`
	RTreeMaxEntries int            `yaml:"rtree_max_entries"`
	GridCellSize    float64        `yaml:"grid_cell_size"`
	Quadtree        QuadtreeConfig `yaml:"quadtree"`
}

// QuadtreeConfig tunes the quadtree index. Zero bounds fall back to
// the engine defaults.
type QuadtreeConfig struct {
	MinX     float64 `yaml:"min_x"`
	MinY     float64 `yaml:"min_y"`
	MaxX     float64 `yaml:"max_x"`
	MaxY     float64 `yaml:"max_y"`
	Capacity int     `yaml:"capacity"`
	MaxDepth int     `yaml:"max_depth"`
}

// Default returns a Server config with sensible defaults.
func Default() Server {
	return Server{
		BindAddress: "0.0.0.0",
		Port:        8090,
		LogLevel:    "info",
		Database: DatabaseConfig{
			Enabled:  false,
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "zonekit",
			Password: "zonekit",
			DBName:   "zonekit",
			SSLMode:  "disable",
		},
		Engine: Engine{
			TickIntervalMs:   100,
			QueryRange:       200,
			DeltaThreshold:   1.0,
			JitterThreshold:  0.1,
			MaxChecksPerTick: 0,
			EvictAfterMisses: 50,
			CacheCapacity:    512,
			CacheTTLMs:       300,
			CacheBucketSize:  16,
			CacheRangeBucket: 50,
			Index:            "rtree",
			RTreeMaxEntries:  16,
			GridCellSize:     256,
			Quadtree: QuadtreeConfig{
				Capacity: 8,
				MaxDepth: 8,
			},
		},
	}
}

// Load loads the server config from a YAML file.
// If the file doesn't exist, returns defaults.
func Load(path string) (Server, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
