package featureflag

type Flag string

const (
	// Cells are activated without matching their border edges.
	FlagDisableEdgeStitching Flag = "DISABLE_EDGE_STITCHING"

	// The grid checks its invariants after every mutation and panics on the
	// first violation.
	FlagDebugInvariants Flag = "DEBUG_INVARIANTS"

	// Archives found in the import directory are not copied into the store.
	FlagDisableArchiveImport Flag = "DISABLE_ARCHIVE_IMPORT"

	// The /grid endpoint is not served.
	FlagDisableGridState Flag = "DISABLE_GRID_STATE"
)
