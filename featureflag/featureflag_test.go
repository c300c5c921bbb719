package featureflag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFeatureFlag(t *testing.T) {
	f := New([]string{string(FlagDebugInvariants), ""})

	t.Run("is set", func(t *testing.T) {
		require.True(t, f.IsSet(FlagDebugInvariants))
		require.False(t, f.IsSet(FlagDisableEdgeStitching))
		require.Len(t, f, 1)
	})

	t.Run("run if enabled", func(t *testing.T) {
		var debug bool
		f.IfSet(FlagDebugInvariants, func() {
			debug = true
		})
		require.True(t, debug)

		var noStitching bool
		f.IfSet(FlagDisableEdgeStitching, func() {
			noStitching = true
		})
		require.False(t, noStitching)
	})

	t.Run("run if disabled", func(t *testing.T) {
		var debug bool
		f.IfNotSet(FlagDebugInvariants, func() {
			debug = true
		})
		require.False(t, debug)

		var stitching bool
		f.IfNotSet(FlagDisableEdgeStitching, func() {
			stitching = true
		})
		require.True(t, stitching)
	})
}
