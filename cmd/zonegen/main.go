// zonegen generates random zone definition snapshots for load testing
// and local development.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/udisondev/zonekit/internal/store"
	"github.com/udisondev/zonekit/internal/zone"
)

func main() {
	out := flag.String("out", "zones.json.gz", "output snapshot path")
	count := flag.Int("count", 500, "number of zones to generate")
	seed := flag.Int64("seed", 1, "random seed")
	world := flag.Float64("world", 10000, "world half-extent; zones land in [-world, world]")
	flag.Parse()

	if err := run(*out, *count, *seed, *world); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(out string, count int, seed int64, world float64) error {
	rng := rand.New(rand.NewSource(seed))

	defs := make([]zone.Definition, 0, count)
	for i := range count {
		defs = append(defs, randomZone(rng, int32(i+1), world))
	}

	if err := store.WriteSnapshot(out, defs); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	slog.Info("snapshot written", "path", out, "zones", len(defs))
	return nil
}

func randomZone(rng *rand.Rand, id int32, world float64) zone.Definition {
	cx := (rng.Float64()*2 - 1) * world
	cy := (rng.Float64()*2 - 1) * world

	def := zone.Definition{
		ID:       id,
		Name:     fmt.Sprintf("zone-%d", id),
		Enabled:  true,
		Priority: rng.Intn(10),
		Dynamic:  rng.Intn(10) == 0, // каждый десятый — динамический
	}

	switch rng.Intn(3) {
	case 0:
		def.Type = zone.KindCircle
		def.X, def.Y = cx, cy
		def.Radius = 10 + rng.Float64()*190
	case 1:
		def.Type = zone.KindRectangle
		def.X, def.Y = cx, cy
		def.Width = 20 + rng.Float64()*380
		def.Height = 20 + rng.Float64()*380
		def.Rotation = rng.Float64() * 3.14159
	default:
		def.Type = zone.KindPolygon
		// Случайный выпуклый-ish четырёхугольник вокруг центра.
		r := 20 + rng.Float64()*180
		def.Points = [][2]float64{
			{cx - r, cy - r},
			{cx + r, cy - r*0.5},
			{cx + r*0.8, cy + r},
			{cx - r*0.6, cy + r*0.7},
		}
	}
	return def
}
