// Package config holds the tunables of the acceleration structures and the
// batch caster, loaded from TOML.
package config

import (
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/df07/go-intersect/pkg/geometry"
	"github.com/df07/go-intersect/pkg/octree"
	"github.com/df07/go-intersect/pkg/raycast"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("config: invalid value")

// Octree controls subdivision of OctreeGeometry
type Octree struct {
	MaxDepth     int `toml:"max_depth"`
	LeafCapacity int `toml:"leaf_capacity"`
}

// BVH controls the hierarchy built inside triangle meshes
type BVH struct {
	LeafThreshold int `toml:"leaf_threshold"`
}

// Implicit controls the sphere tracer of implicit surfaces
type Implicit struct {
	MaxSteps int     `toml:"max_steps"`
	MinStep  float64 `toml:"min_step"`
	Epsilon  float64 `toml:"epsilon"`
}

// Raycast controls the batch caster. Zero workers means one per CPU.
type Raycast struct {
	Workers   int `toml:"workers"`
	BatchSize int `toml:"batch_size"`
}

// Config is the complete set of tunables
type Config struct {
	Octree   Octree   `toml:"octree"`
	BVH      BVH      `toml:"bvh"`
	Implicit Implicit `toml:"implicit"`
	Raycast  Raycast  `toml:"raycast"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Octree: Octree{
			MaxDepth:     octree.DefaultMaxDepth,
			LeafCapacity: octree.DefaultLeafCapacity,
		},
		BVH: BVH{
			LeafThreshold: geometry.DefaultLeafThreshold,
		},
		Implicit: Implicit{
			MaxSteps: geometry.DefaultImplicitOptions.MaxSteps,
			MinStep:  geometry.DefaultImplicitOptions.MinStep,
			Epsilon:  geometry.DefaultImplicitOptions.Epsilon,
		},
		Raycast: Raycast{
			Workers:   0,
			BatchSize: raycast.DefaultBatchSize,
		},
	}
}

// Validate checks every value is usable
func (c Config) Validate() error {
	switch {
	case c.Octree.MaxDepth < 1 || c.Octree.MaxDepth > 21:
		return errors.Wrapf(ErrInvalid, "octree.max_depth %d not in [1, 21]", c.Octree.MaxDepth)
	case c.Octree.LeafCapacity < 1:
		return errors.Wrapf(ErrInvalid, "octree.leaf_capacity %d must be positive", c.Octree.LeafCapacity)
	case c.BVH.LeafThreshold < 1:
		return errors.Wrapf(ErrInvalid, "bvh.leaf_threshold %d must be positive", c.BVH.LeafThreshold)
	case c.Implicit.MaxSteps < 1:
		return errors.Wrapf(ErrInvalid, "implicit.max_steps %d must be positive", c.Implicit.MaxSteps)
	case !(c.Implicit.MinStep > 0):
		return errors.Wrapf(ErrInvalid, "implicit.min_step %g must be positive", c.Implicit.MinStep)
	case !(c.Implicit.Epsilon > 0):
		return errors.Wrapf(ErrInvalid, "implicit.epsilon %g must be positive", c.Implicit.Epsilon)
	case c.Raycast.Workers < 0:
		return errors.Wrapf(ErrInvalid, "raycast.workers %d must not be negative", c.Raycast.Workers)
	case c.Raycast.BatchSize < 1:
		return errors.Wrapf(ErrInvalid, "raycast.batch_size %d must be positive", c.Raycast.BatchSize)
	}
	return nil
}

// Load decodes TOML over the defaults, so omitted keys keep their default
// values. Unknown keys are rejected.
func Load(r io.Reader) (Config, error) {
	cfg := Default()
	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: decode")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile loads the configuration at path
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config: open %s", path)
	}
	defer f.Close()
	return Load(f)
}

// Encode writes the configuration as TOML
func (c Config) Encode(w io.Writer) error {
	return errors.Wrap(toml.NewEncoder(w).Encode(c), "config: encode")
}

// ImplicitOptions converts the implicit section for NewImplicit
func (c Config) ImplicitOptions() geometry.ImplicitOptions {
	return geometry.ImplicitOptions{
		MaxSteps: c.Implicit.MaxSteps,
		MinStep:  c.Implicit.MinStep,
		Epsilon:  c.Implicit.Epsilon,
	}
}
