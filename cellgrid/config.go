package cellgrid

import (
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/navgrid/payload"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCellSize                 = 10
	DefaultNavMeshAltitudeTolerance = 0.5
	DefaultGraphAltitudeTolerance   = 0.1
	DefaultLateralTolerance         = 0.01
	DefaultMaxSlots                 = 1 << 20
)

// Config holds the tuning of a grid.
type Config struct {
	// The kind of payloads the grid accepts.
	Kind payload.Kind `yaml:"-"`

	// The world size of a square cell.
	CellSize float32 `yaml:"cell_size"`

	// The maximum altitude difference for two border vertices to be linked.
	AltitudeTolerance float32 `yaml:"altitude_tolerance"`

	// The maximum distance from the border line for a vertex to be considered
	// on the border, and the maximum along-border distance for two border
	// vertices to be linked.
	LateralTolerance float32 `yaml:"lateral_tolerance"`

	// The maximum number of slots the grid may grow to.
	MaxSlots int `yaml:"max_slots"`

	// Whether border edges are linked in addition to border vertices.
	StitchEdges bool `yaml:"stitch_edges"`

	// Whether invariants are verified after every mutation.
	Debug bool `yaml:"debug"`
}

// DefaultConfig returns the default configuration for the given kind of grid.
// Navmesh cells get a larger altitude tolerance than graph cells since mesh
// simplification introduces vertical slack.
func DefaultConfig(kind payload.Kind) Config {
	c := Config{
		Kind:              kind,
		CellSize:          DefaultCellSize,
		AltitudeTolerance: DefaultNavMeshAltitudeTolerance,
		LateralTolerance:  DefaultLateralTolerance,
		MaxSlots:          DefaultMaxSlots,
		StitchEdges:       true,
	}
	if kind == payload.KindGraph {
		c.AltitudeTolerance = DefaultGraphAltitudeTolerance
	}
	return c
}

// LoadConfig reads a YAML tuning file on top of the defaults of the given
// kind.
func LoadConfig(path string, kind payload.Kind) (Config, error) {
	c := DefaultConfig(kind)

	raw, err := os.ReadFile(path)
	if err != nil {
		return c, errors.New("reading grid config failed").
			WithTag("path", path).
			Wrap(err)
	}

	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, errors.New("parsing grid config failed").
			WithType(ErrTypeInvalidConfig).
			WithTag("path", path).
			Wrap(err)
	}
	c.Kind = kind

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) Validate() error {
	switch {
	case c.Kind != payload.KindNavMesh && c.Kind != payload.KindGraph:
		return errors.New("unknown grid kind").
			WithType(ErrTypeInvalidConfig).
			WithTag("kind", uint8(c.Kind))

	case c.CellSize <= 0:
		return errors.New("cell size must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("cell_size", c.CellSize)

	case c.AltitudeTolerance < 0 || c.LateralTolerance < 0:
		return errors.New("tolerances must not be negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("altitude_tolerance", c.AltitudeTolerance).
			WithTag("lateral_tolerance", c.LateralTolerance)

	case c.MaxSlots <= 0:
		return errors.New("max slots must be positive").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_slots", c.MaxSlots)
	}
	return nil
}
