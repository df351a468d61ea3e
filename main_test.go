package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-intersect/pkg/config"
	"github.com/df07/go-intersect/pkg/core"
)

func TestProbeCSG(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), config.Default(), probeOptions{scenario: "csg"}, &out, core.NopLogger{}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "csg union: x=-1.0000 front=true normal=-1.0000 x=2.0000 front=false normal=1.0000", lines[0])
	assert.Equal(t, "csg intersection: x=0.0000 front=true normal=-1.0000 x=1.0000 front=false normal=1.0000", lines[1])
	assert.Equal(t, "csg subtraction: x=-1.0000 front=true normal=-1.0000 x=0.0000 front=false normal=1.0000", lines[2])
}

func TestProbeAllScenarios(t *testing.T) {
	cfg := config.Default()
	cfg.Raycast.Workers = 2

	var out bytes.Buffer
	opts := probeOptions{scenario: "all", rays: 500, seed: 3}
	require.NoError(t, run(context.Background(), cfg, opts, &out, core.NopLogger{}))
	assert.Contains(t, out.String(), "octree: ")
	assert.Contains(t, out.String(), "implicit: ")
	assert.NotContains(t, out.String(), "mesh: ")
}

func TestProbeMesh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.ply")
	ply := "ply\nformat ascii 1.0\nelement vertex 3\nproperty float x\nproperty float y\nproperty float z\n" +
		"element face 1\nproperty list uchar int vertex_indices\nend_header\n0 0 0\n1 0 0\n0 1 0\n3 0 1 2\n"
	require.NoError(t, os.WriteFile(path, []byte(ply), 0o644))

	var out bytes.Buffer
	opts := probeOptions{scenario: "mesh", plyPath: path, rays: 50, seed: 1}
	require.NoError(t, run(context.Background(), config.Default(), opts, &out, core.NopLogger{}))
	assert.Contains(t, out.String(), "mesh: ")

	opts.plyPath = ""
	assert.Error(t, run(context.Background(), config.Default(), opts, &out, core.NopLogger{}))
}

func TestProbeErrors(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), config.Default(), probeOptions{scenario: "teapot"}, &out, core.NopLogger{})
	assert.ErrorContains(t, err, "unknown scenario")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = run(ctx, config.Default(), probeOptions{scenario: "octree", rays: 100}, &out, core.NopLogger{})
	assert.ErrorIs(t, err, context.Canceled)
}
