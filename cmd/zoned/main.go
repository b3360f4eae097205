// zoned runs the zonekit spatial membership engine as a standalone
// server: zone definitions come from Postgres or a snapshot file,
// agent positions arrive over HTTP, occupancy events stream out over
// websocket, and Prometheus scrapes /metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/zonekit/internal/config"
	"github.com/udisondev/zonekit/internal/engine"
	"github.com/udisondev/zonekit/internal/feed"
	"github.com/udisondev/zonekit/internal/geo"
	"github.com/udisondev/zonekit/internal/metrics"
	"github.com/udisondev/zonekit/internal/store"
	"github.com/udisondev/zonekit/internal/zone"
)

const defaultConfigPath = "config/zoned.yaml"

// zoneStore is the persistence surface the admin endpoints use.
// *store.Store satisfies it; nil means the server runs without
// persistence and zone edits live only in memory.
type zoneStore interface {
	Load(ctx context.Context, id int32) (zone.Definition, bool, error)
	SaveAll(ctx context.Context, defs []zone.Definition) error
	Delete(ctx context.Context, id int32) (bool, error)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := flag.String("config", defaultConfigPath, "path to YAML config")
	flag.Parse()
	if p := os.Getenv("ZONEKIT_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	slog.Info("zoned starting", "bind", cfg.BindAddress, "port", cfg.Port, "log_level", cfg.LogLevel)

	source := engine.NewMemSource()
	mgr, err := engine.New(source, engineOptions(cfg.Engine))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	var st zoneStore
	var pg *store.Store
	if cfg.Database.Enabled {
		if err := store.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		pg, err = store.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to zone store: %w", err)
		}
		defer pg.Close()
		st = pg
	}

	if err := loadZones(ctx, cfg, mgr, pg); err != nil {
		return err
	}

	feedSrv := feed.NewServer()
	mgr.SetSink(feedSrv)

	mux := newMux(mgr, source, feedSrv, st)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mgr.Start(gctx)
	})

	g.Go(func() error {
		slog.Info("http listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Финальное состояние зон переживает перезапуск только через БД.
	if pg != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		defs := mgr.ExportAll()
		if err := pg.SaveAll(saveCtx, defs); err != nil {
			slog.Error("persisting zones on shutdown", "err", err)
		} else {
			slog.Info("zones persisted", "count", len(defs))
		}
	}

	slog.Info("zoned stopped")
	return nil
}

// newMux wires the HTTP surface: the websocket feed, metrics, stats,
// position ingestion and zone administration. st may be nil when the
// server runs without a database.
func newMux(mgr *engine.Manager, source *engine.MemSource, feedSrv *feed.Server, st zoneStore) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /ws", feedSrv.Handler())
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(mgr.Stats())
	})
	mux.HandleFunc("GET /zones", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(mgr.ExportAll())
	})
	mux.HandleFunc("POST /zones", func(w http.ResponseWriter, r *http.Request) {
		var def zone.Definition
		if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		id, err := mgr.Create(def)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		if st != nil {
			// Сохраняем каноничное определение с выданным id.
			if d, ok := mgr.Zone(id); ok {
				if err := st.SaveAll(r.Context(), []zone.Definition{d}); err != nil {
					slog.Error("persisting zone", "id", id, "err", err)
					http.Error(w, "persist failed", http.StatusInternalServerError)
					return
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]int32{"id": id})
	})
	mux.HandleFunc("GET /zones/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := parseZoneID(r.PathValue("id"))
		if err != nil {
			http.Error(w, "bad zone id", http.StatusBadRequest)
			return
		}
		def, ok := mgr.Zone(id)
		if !ok && st != nil {
			// Зона может быть в БД, но не импортирована в движок.
			def, ok, err = st.Load(r.Context(), id)
			if err != nil {
				slog.Error("loading zone", "id", id, "err", err)
				http.Error(w, "load failed", http.StatusInternalServerError)
				return
			}
		}
		if !ok {
			http.Error(w, "zone not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(def)
	})
	mux.HandleFunc("DELETE /zones/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := parseZoneID(r.PathValue("id"))
		if err != nil {
			http.Error(w, "bad zone id", http.StatusBadRequest)
			return
		}
		removed := mgr.Remove(id)
		if st != nil {
			stored, err := st.Delete(r.Context(), id)
			if err != nil {
				slog.Error("deleting stored zone", "id", id, "err", err)
				http.Error(w, "delete failed", http.StatusInternalServerError)
				return
			}
			removed = removed || stored
		}
		if !removed {
			http.Error(w, "zone not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /positions", func(w http.ResponseWriter, r *http.Request) {
		var req positionUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.AgentID == "" {
			http.Error(w, "agent_id required", http.StatusBadRequest)
			return
		}
		source.Set(req.AgentID, req.X, req.Y, req.Z)
		mgr.TrackAgent(req.AgentID)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /positions/{agent}", func(w http.ResponseWriter, r *http.Request) {
		agentID := r.PathValue("agent")
		source.Delete(agentID)
		mgr.UntrackAgent(agentID)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func parseZoneID(s string) (int32, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing zone id %q: %w", s, err)
	}
	return int32(id), nil
}

type positionUpdate struct {
	AgentID string  `json:"agent_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
}

// loadZones imports zone definitions from the database when enabled,
// otherwise from the snapshot file when configured.
func loadZones(ctx context.Context, cfg config.Server, mgr *engine.Manager, pg *store.Store) error {
	switch {
	case cfg.Database.Enabled:
		defs, err := pg.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("loading zones from store: %w", err)
		}
		if err := mgr.ImportAll(defs); err != nil {
			return fmt.Errorf("importing stored zones: %w", err)
		}
		slog.Info("zones loaded from database", "count", len(defs))

	case cfg.SnapshotPath != "":
		defs, err := store.ReadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return fmt.Errorf("reading zone snapshot: %w", err)
		}
		if err := mgr.ImportAll(defs); err != nil {
			return fmt.Errorf("importing snapshot zones: %w", err)
		}
		slog.Info("zones loaded from snapshot", "path", cfg.SnapshotPath, "count", len(defs))

	default:
		slog.Info("starting with empty zone set")
	}
	return nil
}

func engineOptions(e config.Engine) engine.Options {
	return engine.Options{
		TickInterval:     time.Duration(e.TickIntervalMs) * time.Millisecond,
		QueryRange:       e.QueryRange,
		DeltaThreshold:   e.DeltaThreshold,
		JitterThreshold:  e.JitterThreshold,
		MaxChecksPerTick: e.MaxChecksPerTick,
		EvictAfterMisses: e.EvictAfterMisses,
		CacheCapacity:    e.CacheCapacity,
		CacheTTL:         time.Duration(e.CacheTTLMs) * time.Millisecond,
		CacheBucketSize:  e.CacheBucketSize,
		CacheRangeBucket: e.CacheRangeBucket,
		Index:            e.Index,
		RTreeMaxEntries:  e.RTreeMaxEntries,
		GridCellSize:     e.GridCellSize,
		QuadtreeBounds: geo.BBox{
			MinX: e.Quadtree.MinX,
			MinY: e.Quadtree.MinY,
			MaxX: e.Quadtree.MaxX,
			MaxY: e.Quadtree.MaxY,
		},
		QuadtreeCapacity: e.Quadtree.Capacity,
		QuadtreeMaxDepth: e.Quadtree.MaxDepth,
		Metrics:          true,
	}
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
