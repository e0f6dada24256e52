package report

import "errors"

var (
	ErrMissingPrincipal       = errors.New("user_id claim is missing or invalid")
	ErrReportGenerationFailed = errors.New("failed to generate report")
	ErrStreamNotSupported     = errors.New("streaming not supported")
)
