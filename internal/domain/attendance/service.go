package attendance

// Reconciler turns raw per-employee clock arrays into classified records.
type Reconciler interface {
	Reconcile(raws []RawEmployeeAttendance) ReconcileResult
}
