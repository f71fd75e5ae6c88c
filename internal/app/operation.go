package app

// SyncOperation tracks one CLI run. Operations are created in memory with
// ID=0. Only commands that touch the mirror persist them in the journal.
type SyncOperation struct {
	ID         int64
	RunID      string
	Operation  string
	Parameters string
	Status     string // "success" or "error"
}

// NewSyncOperation creates a new in-memory operation.
func NewSyncOperation(runID, operation, parameters string) *SyncOperation {
	return &SyncOperation{
		RunID:      runID,
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
	}
}

// Persisted returns true if this operation has been saved to the journal.
func (op *SyncOperation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as failed when err is non-nil and returns err.
func (op *SyncOperation) Fail(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}
