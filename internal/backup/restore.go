package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// sidecarSuffixes are the side files a single-file database engine keeps
// next to its main file. Stale ones applied against a swapped-in base file
// would corrupt it, so they are cleared around the swap.
var sidecarSuffixes = []string{"-wal", "-shm", "-journal"}

// Restore destructively replaces the live database with the decompressed
// artifact for id. Maintenance mode keeps the rest of the application from
// mutating data while the file is swapped; on any failure past the safety
// copy the previous database is put back and the original error propagated.
func (e *Engine) Restore(id string) (*Record, error) {
	if err := e.state.Acquire(OpRestore); err != nil {
		return nil, err
	}
	defer e.state.Release()

	rec, err := e.restore(id)
	if err != nil {
		return nil, fmt.Errorf("restore backup %q: %w", id, err)
	}
	return rec, nil
}

func (e *Engine) restore(id string) (*Record, error) {
	records, err := e.store.Read()
	if err != nil {
		return nil, err
	}
	rec := findRecord(records, id)
	if rec == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Status != StatusSuccess {
		return nil, fmt.Errorf("backup %q finished with status %q and cannot be restored", id, rec.Status)
	}

	// Verify the artifact before touching the live database. A mismatch is
	// non-retryable with this backup.
	artifactPath := filepath.Join(e.dir, rec.Filename)
	sum, err := ChecksumFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("verify artifact: %w", err)
	}
	if sum != rec.Checksum {
		return nil, fmt.Errorf("%w: artifact %s checksum mismatch", ErrIntegrity, rec.Filename)
	}

	e.state.EnableMaintenance()
	defer e.state.DisableMaintenance()

	safetyPath := e.dbPath + ".pre-restore"
	candidatePath := artifactPath + ".restoring"
	defer func() {
		for _, p := range []string{safetyPath, candidatePath} {
			if err := removeIfExists(p); err != nil {
				e.log.Warn("remove temporary restore file", "path", p, "error", err.Error())
			}
		}
	}()

	// The safety copy is the rollback point for everything after it.
	if err := CopyFile(e.dbPath, safetyPath); err != nil {
		return nil, fmt.Errorf("safety copy: %w", err)
	}

	if err := e.swapIn(artifactPath, candidatePath); err != nil {
		e.rollback(safetyPath)
		if rerr := e.db.Reconnect(); rerr != nil {
			e.log.Error("reconnect after failed restore", "error", rerr.Error())
		}
		return nil, err
	}

	if err := e.db.Reconnect(); err != nil {
		return nil, fmt.Errorf("reconnect database: %w", err)
	}

	e.log.Info("backup restored", "id", rec.ID, "filename", rec.Filename)
	return rec, nil
}

// swapIn runs quiesce, sidecar clearing, decompression, validation and the
// atomic swap. Any error leaves rollback and reconnection to the caller.
func (e *Engine) swapIn(artifactPath, candidatePath string) error {
	if err := e.db.Quiesce(); err != nil {
		return fmt.Errorf("quiesce database: %w", err)
	}
	if err := e.clearSidecars(); err != nil {
		return err
	}
	if err := DecompressFile(artifactPath, candidatePath); err != nil {
		return err
	}
	info, err := os.Stat(candidatePath)
	if err != nil {
		return fmt.Errorf("stat decompressed candidate: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: decompressed artifact is empty", ErrIntegrity)
	}
	if err := replaceFile(candidatePath, e.dbPath); err != nil {
		return fmt.Errorf("swap database file: %w", err)
	}
	// The swapped-in file must start with no stale side files either.
	return e.clearSidecars()
}

// rollback puts the pre-restore safety copy back. Best effort: a rollback
// failure is logged so it never masks the original restore error.
func (e *Engine) rollback(safetyPath string) {
	if err := CopyFile(safetyPath, e.dbPath); err != nil {
		e.log.Error("rollback from safety copy failed",
			"path", safetyPath, "error", err.Error())
		return
	}
	if err := e.clearSidecars(); err != nil {
		e.log.Warn("clear sidecar files during rollback", "error", err.Error())
	}
	e.log.Warn("live database rolled back to pre-restore state")
}

func (e *Engine) clearSidecars() error {
	for _, suffix := range sidecarSuffixes {
		path := e.dbPath + suffix
		if err := removeIfExists(path); err != nil {
			return fmt.Errorf("remove sidecar %q: %w", path, err)
		}
	}
	return nil
}

func findRecord(records []Record, id string) *Record {
	for i := range records {
		if records[i].ID == id {
			return &records[i]
		}
	}
	return nil
}
