package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Port != 8090 {
		t.Errorf("Port = %d, want 8090", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Database.Enabled {
		t.Error("database must be disabled by default")
	}
	if cfg.Engine.TickIntervalMs != 100 {
		t.Errorf("TickIntervalMs = %d, want 100", cfg.Engine.TickIntervalMs)
	}
	if cfg.Engine.Index != "rtree" {
		t.Errorf("Index = %q, want rtree", cfg.Engine.Index)
	}
	if cfg.Engine.Quadtree.Capacity != 8 || cfg.Engine.Quadtree.MaxDepth != 8 {
		t.Errorf("Quadtree defaults = %+v, want capacity 8, max depth 8", cfg.Engine.Quadtree)
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file errored: %v", err)
	}
	if cfg.Port != Default().Port {
		t.Errorf("Port = %d, want default %d", cfg.Port, Default().Port)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoned.yaml")
	data := `
bind_address: 127.0.0.1
port: 9100
log_level: debug
database:
  enabled: true
  host: db.local
  user: zk
  password: secret
  dbname: zones
snapshot_path: /var/lib/zonekit/zones.json.gz
engine:
  tick_interval_ms: 50
  query_range: 300
  max_checks_per_tick: 1000
  index: grid
  grid_cell_size: 128
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.BindAddress != "127.0.0.1" || cfg.Port != 9100 {
		t.Errorf("network = %s:%d, want 127.0.0.1:9100", cfg.BindAddress, cfg.Port)
	}
	if !cfg.Database.Enabled || cfg.Database.Host != "db.local" {
		t.Errorf("database config not applied: %+v", cfg.Database)
	}
	if cfg.Engine.TickIntervalMs != 50 || cfg.Engine.Index != "grid" {
		t.Errorf("engine config not applied: %+v", cfg.Engine)
	}

	// Незаданные в файле поля остаются дефолтными.
	if cfg.Engine.CacheCapacity != 512 {
		t.Errorf("CacheCapacity = %d, want default 512", cfg.Engine.CacheCapacity)
	}
}

func TestLoad_QuadtreeKnobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoned.yaml")
	data := `
engine:
  index: quadtree
  quadtree:
    min_x: -1000
    min_y: -500
    max_x: 1000
    max_y: 500
    capacity: 4
    max_depth: 6
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	qt := cfg.Engine.Quadtree
	if qt.MinX != -1000 || qt.MinY != -500 || qt.MaxX != 1000 || qt.MaxY != 500 {
		t.Errorf("Quadtree bounds = %+v, want (-1000,-500)..(1000,500)", qt)
	}
	if qt.Capacity != 4 || qt.MaxDepth != 6 {
		t.Errorf("Quadtree tuning = %+v, want capacity 4, max depth 6", qt)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("port: [not a number"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Load of broken YAML must fail")
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "127.0.0.1", Port: 5432,
		User: "zk", Password: "pw", DBName: "zones", SSLMode: "disable",
	}
	want := "postgres://zk:pw@127.0.0.1:5432/zones?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}
