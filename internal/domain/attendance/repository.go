package attendance

import "context"

// Source is the Raw Attendance Source: the upstream that owns clock events and
// aggregate counters. Implementations must not retry.
type Source interface {
	// FetchReport returns one JSON page of raw per-employee attendance for the descriptor.
	FetchReport(ctx context.Context, ep Endpoint, q QueryDescriptor) (RawReport, error)

	// ExportReport returns the upstream-rendered spreadsheet for the descriptor.
	ExportReport(ctx context.Context, ep Endpoint, q QueryDescriptor) (ExportFile, error)
}
