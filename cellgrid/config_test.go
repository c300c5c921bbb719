package cellgrid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/payload"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	navmesh := DefaultConfig(payload.KindNavMesh)
	require.Equal(t, float32(DefaultNavMeshAltitudeTolerance), navmesh.AltitudeTolerance)
	require.Equal(t, float32(DefaultLateralTolerance), navmesh.LateralTolerance)
	require.NoError(t, navmesh.Validate())

	graph := DefaultConfig(payload.KindGraph)
	require.Equal(t, float32(DefaultGraphAltitudeTolerance), graph.AltitudeTolerance)
	require.NoError(t, graph.Validate())

	bad := graph
	bad.CellSize = 0
	require.True(t, errors.IsType(bad.Validate(), ErrTypeInvalidConfig))

	bad = graph
	bad.Kind = 0
	_, err := New(bad)
	require.True(t, errors.IsType(err, ErrTypeInvalidConfig))
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("overrides defaults", func(t *testing.T) {
		path := filepath.Join(dir, "grid.yaml")
		err := os.WriteFile(path, []byte("cell_size: 25\naltitude_tolerance: 0.25\nstitch_edges: false\n"), 0o600)
		require.NoError(t, err)

		c, err := LoadConfig(path, payload.KindGraph)
		require.NoError(t, err)
		require.Equal(t, payload.KindGraph, c.Kind)
		require.Equal(t, float32(25), c.CellSize)
		require.Equal(t, float32(0.25), c.AltitudeTolerance)
		require.Equal(t, float32(DefaultLateralTolerance), c.LateralTolerance)
		require.Equal(t, DefaultMaxSlots, c.MaxSlots)
		require.False(t, c.StitchEdges)
	})

	t.Run("invalid values are refused", func(t *testing.T) {
		path := filepath.Join(dir, "negative.yaml")
		require.NoError(t, os.WriteFile(path, []byte("lateral_tolerance: -1\n"), 0o600))

		_, err := LoadConfig(path, payload.KindNavMesh)
		require.True(t, errors.IsType(err, ErrTypeInvalidConfig))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "missing.yaml"), payload.KindNavMesh)
		require.Error(t, err)
	})
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{PolicyDeferred, PolicyActivate, PolicySupersede} {
		parsed, err := ParsePolicy(p.String())
		require.NoError(t, err)
		require.Equal(t, p, parsed)
	}

	_, err := ParsePolicy("random")
	require.True(t, errors.IsType(err, ErrTypeInvalidConfig))
}
