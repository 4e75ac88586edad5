package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced backup id has no catalog entry.
	ErrNotFound = errors.New("backup not found")

	// ErrIntegrity indicates a checksum mismatch or a truncated artifact.
	// Not retryable with the same backup.
	ErrIntegrity = errors.New("backup integrity check failed")
)

// Operation identifies which exclusive operation holds the state gate.
type Operation string

const (
	OpNone    Operation = ""
	OpBackup  Operation = "backup"
	OpRestore Operation = "restore"
)

// OperationInProgressError is returned when a backup or restore is requested
// while another one is still running. Transient: the caller may retry once
// the running operation finishes.
type OperationInProgressError struct {
	Current Operation
}

func (e *OperationInProgressError) Error() string {
	return fmt.Sprintf("%s operation already in progress", e.Current)
}
