// Package raycast resolves batches of rays against a scene element in
// parallel. Elements are immutable once built, so workers share them
// without locking; each worker owns its recorders and shading contexts.
package raycast

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/df07/go-intersect/pkg/core"
	"github.com/df07/go-intersect/pkg/geometry"
)

// DefaultBatchSize is the number of rays a worker takes at a time
const DefaultBatchSize = 256

// Hit is the resolved nearest intersection of one ray
type Hit struct {
	OK       bool
	Distance float64
	Front    bool
	Surface  geometry.SurfaceContext
}

// Stats summarizes one Cast call
type Stats struct {
	Rays     int
	Hits     int
	Batches  int
	Duration time.Duration
}

// Caster casts batches of rays with a bounded number of workers
type Caster struct {
	Workers   int // <= 0 uses runtime.NumCPU()
	BatchSize int // <= 0 uses DefaultBatchSize
	Logger    core.Logger
}

// NewCaster creates a caster with the given worker count. The logger may
// be nil.
func NewCaster(workers, batchSize int, logger core.Logger) *Caster {
	return &Caster{Workers: workers, BatchSize: batchSize, Logger: logger}
}

// Cast resolves the nearest intersection of every ray. hits[i] belongs to
// rays[i]. Cancellation is checked between batches; on cancellation the
// context error is returned with the partial results.
func (c *Caster) Cast(ctx context.Context, e geometry.SceneElement, rays []core.Ray) ([]Hit, Stats, error) {
	start := time.Now()
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	batchSize := c.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logger := c.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}

	hits := make([]Hit, len(rays))
	var hitCount, batches atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(rays); lo += batchSize {
		hi := min(lo+batchSize, len(rays))
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Each batch writes a disjoint range of hits
			n := castBatch(e, rays[lo:hi], hits[lo:hi])
			hitCount.Add(int64(n))
			batches.Add(1)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats := Stats{
		Rays:     len(rays),
		Hits:     int(hitCount.Load()),
		Batches:  int(batches.Load()),
		Duration: time.Since(start),
	}
	logger.Printf("raycast: %d rays, %d hits, %d batches on %d workers in %v",
		stats.Rays, stats.Hits, stats.Batches, workers, stats.Duration)
	return hits, stats, err
}

func castBatch(e geometry.SceneElement, rays []core.Ray, hits []Hit) int {
	count := 0
	for i, ray := range rays {
		x := geometry.IntersectNearest(e, ray)
		if x == nil {
			continue
		}
		hits[i] = Hit{
			OK:       true,
			Distance: x.Distance(),
			Front:    x.Front(),
			Surface:  geometry.Surface(x),
		}
		count++
	}
	return count
}
