package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/pkg/errors"

	"github.com/df07/go-intersect/pkg/config"
	"github.com/df07/go-intersect/pkg/core"
	"github.com/df07/go-intersect/pkg/geometry"
	"github.com/df07/go-intersect/pkg/loaders"
	"github.com/df07/go-intersect/pkg/raycast"
)

// probeOptions are the command line settings of one run
type probeOptions struct {
	scenario string
	plyPath  string
	rays     int
	seed     int64
}

func main() {
	configPath := flag.String("config", "", "TOML file overriding the default tunables")
	scenario := flag.String("scenario", "all", "Scenario: 'csg', 'octree', 'implicit', 'mesh' or 'all'")
	plyPath := flag.String("ply", "", "PLY mesh for the mesh scenario")
	workers := flag.Int("workers", -1, "Worker count overriding the config (0 = one per CPU)")
	rays := flag.Int("rays", 10000, "Rays cast per accelerated scenario")
	seed := flag.Int64("seed", 1, "Seed for generated scenes and rays")
	help := flag.Bool("help", false, "Show help information")
	flag.Parse()

	if *help {
		fmt.Println("Intersection probe")
		fmt.Println("Usage: intersect [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Println("Scenarios:")
		fmt.Println("  csg      - two overlapping spheres combined by union, intersection and subtraction")
		fmt.Println("  octree   - octree-accelerated sphere field checked against brute force")
		fmt.Println("  implicit - transformed sdfx solid cut by an analytic sphere")
		fmt.Println("  mesh     - PLY mesh given with -ply")
		return
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			logger.Fatalf("Error loading config: %v", err)
		}
	}
	if *workers >= 0 {
		cfg.Raycast.Workers = *workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := probeOptions{scenario: *scenario, plyPath: *plyPath, rays: *rays, seed: *seed}
	if err := run(ctx, cfg, opts, os.Stdout, logger); err != nil {
		logger.Fatalf("Error: %v", err)
	}
}

// run executes the selected scenarios, writing crossings to out and build
// statistics to logger
func run(ctx context.Context, cfg config.Config, opts probeOptions, out io.Writer, logger core.Logger) error {
	scenarios := []string{opts.scenario}
	if opts.scenario == "all" {
		scenarios = []string{"csg", "octree", "implicit"}
		if opts.plyPath != "" {
			scenarios = append(scenarios, "mesh")
		}
	}

	caster := raycast.NewCaster(cfg.Raycast.Workers, cfg.Raycast.BatchSize, logger)
	for _, name := range scenarios {
		var err error
		switch name {
		case "csg":
			err = probeCSG(out)
		case "octree":
			err = probeOctree(ctx, cfg, opts, caster, out, logger)
		case "implicit":
			err = probeImplicit(ctx, cfg, opts, caster, out)
		case "mesh":
			err = probeMesh(ctx, cfg, opts, caster, out, logger)
		default:
			err = errors.Errorf("unknown scenario %q", name)
		}
		if err != nil {
			return errors.Wrapf(err, "scenario %s", name)
		}
	}
	return nil
}

// probeCSG prints every boundary crossing of the two-sphere solids along
// the X axis
func probeCSG(out io.Writer) error {
	a := geometry.NewSphere(core.NewVec3(0, 0, 0), 1)
	b := geometry.NewSphere(core.NewVec3(1, 0, 0), 1)
	ray := core.NewRay(core.NewVec3(-5, 0, 0), core.NewVec3(1, 0, 0))

	solids := []struct {
		name string
		csg  *geometry.CSG
	}{
		{"union", geometry.NewUnion(a, b)},
		{"intersection", geometry.NewIntersection(a, b)},
		{"subtraction", geometry.NewSubtraction(a, b)},
	}
	for _, s := range solids {
		fmt.Fprintf(out, "csg %s:", s.name)
		for _, x := range geometry.IntersectAll(s.csg, ray) {
			surface := geometry.Surface(x)
			fmt.Fprintf(out, " x=%.4f front=%t normal=%.4f", surface.Position.X, x.Front(), surface.Normal.X)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// sphereField scatters small spheres through a cube centered on the origin
func sphereField(rng *rand.Rand, n int, size float64) *geometry.Composite {
	field := geometry.NewComposite()
	for i := 0; i < n; i++ {
		center := core.NewVec3(rng.Float64()-0.5, rng.Float64()-0.5, rng.Float64()-0.5).Multiply(size)
		field.AddChild(geometry.NewSphere(center, 0.05*size*(0.2+rng.Float64())))
	}
	return field
}

// cameraRays fans rays from a point outside the scene toward its bounding
// box
func cameraRays(rng *rand.Rand, n int, box core.AABB) []core.Ray {
	center := box.Center()
	eye := center.Add(core.NewVec3(0, 0, -2*box.Size().Length()))
	rays := make([]core.Ray, n)
	for i := range rays {
		target := core.NewVec3(
			box.Min.X+rng.Float64()*box.Size().X,
			box.Min.Y+rng.Float64()*box.Size().Y,
			center.Z,
		)
		rays[i] = core.NewRay(eye, target.Subtract(eye))
	}
	return rays
}

// cast runs the rays through the caster and reports the hit rate
func cast(ctx context.Context, caster *raycast.Caster, e geometry.SceneElement, rays []core.Ray, name string, out io.Writer) ([]raycast.Hit, error) {
	hits, stats, err := caster.Cast(ctx, e, rays)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "%s: %d of %d rays hit in %v\n", name, stats.Hits, stats.Rays, stats.Duration)
	return hits, nil
}

func probeOctree(ctx context.Context, cfg config.Config, opts probeOptions, caster *raycast.Caster, out io.Writer, logger core.Logger) error {
	rng := rand.New(rand.NewSource(opts.seed))
	field := sphereField(rng, 2000, 100)
	accelerated := geometry.NewOctreeGeometry(field, cfg.Octree.MaxDepth, cfg.Octree.LeafCapacity, logger)

	rays := cameraRays(rng, opts.rays, field.BoundingBox())
	hits, err := cast(ctx, caster, accelerated, rays, "octree", out)
	if err != nil {
		return err
	}

	// Spot check against the unaccelerated field
	mismatches := 0
	for i := 0; i < len(rays); i += max(1, len(rays)/100) {
		x := geometry.IntersectNearest(field, rays[i])
		if (x != nil) != hits[i].OK || (x != nil && x.Distance() != hits[i].Distance) {
			mismatches++
		}
	}
	if mismatches > 0 {
		return errors.Errorf("%d octree hits disagree with brute force", mismatches)
	}
	return nil
}

func probeImplicit(ctx context.Context, cfg config.Config, opts probeOptions, caster *raycast.Caster, out io.Writer) error {
	box, err := sdf.Box3D(v3.Vec{X: 2, Y: 2, Z: 2}, 0.2)
	if err != nil {
		return errors.Wrap(err, "sdf box")
	}
	ball, err := sdf.Sphere3D(1.3)
	if err != nil {
		return errors.Wrap(err, "sdf sphere")
	}
	rounded := geometry.NewImplicit(sdf.Intersect3D(box, ball), cfg.ImplicitOptions())

	solid := geometry.NewTransformable(rounded).RotateY(math.Pi / 6).RotateX(math.Pi / 8)
	if err := solid.Scale(1.5); err != nil {
		return err
	}
	cut := geometry.NewSubtraction(solid, geometry.NewSphere(core.NewVec3(0, 0, -1.5), 1))

	rng := rand.New(rand.NewSource(opts.seed))
	_, err = cast(ctx, caster, cut, cameraRays(rng, opts.rays/10, cut.BoundingBox()), "implicit", out)
	return err
}

func probeMesh(ctx context.Context, cfg config.Config, opts probeOptions, caster *raycast.Caster, out io.Writer, logger core.Logger) error {
	if opts.plyPath == "" {
		return errors.New("mesh scenario needs -ply")
	}
	mesh, err := loaders.LoadPLYMesh(opts.plyPath, cfg.BVH.LeafThreshold, logger)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(opts.seed))
	_, err = cast(ctx, caster, mesh, cameraRays(rng, opts.rays, mesh.BoundingBox()), "mesh", out)
	return err
}
