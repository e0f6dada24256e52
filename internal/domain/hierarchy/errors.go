package hierarchy

import "errors"

var (
	ErrInvalidLevel    = errors.New("invalid filter level")
	ErrSupersededFetch = errors.New("filter options fetch was superseded by a newer selection")
)
