package cellgrid

const (
	ErrTypeGridTooLarge          = "grid_too_large"
	ErrTypeSectorAlreadyInserted = "sector_already_inserted"
	ErrTypeSectorNotInserted     = "sector_not_inserted"
	ErrTypeInvariant             = "invariant"
	ErrTypeNotFound              = "not_found"
	ErrTypeInvalidConfig         = "invalid_config"
)
