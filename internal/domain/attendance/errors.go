package attendance

import "errors"

// Attendance reporting errors
var (
	ErrStaleDescriptor = errors.New("query descriptor was superseded by a newer one")
	ErrNoQuery         = errors.New("no attendance query has been applied yet")
	ErrSourceFailed    = errors.New("attendance source request failed")
	ErrExportEmpty     = errors.New("attendance source returned an empty export")
)
