package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Create takes a point-in-time snapshot of the live database, compresses it
// into the backup directory and appends a success record to the catalog.
// A second backup or restore request while this one runs fails immediately
// with OperationInProgressError.
func (e *Engine) Create(ctx context.Context, reason string) (*Record, error) {
	if err := e.state.Acquire(OpBackup); err != nil {
		return nil, err
	}
	defer e.state.Release()

	rec, err := e.create(ctx, reason)
	if err != nil {
		return nil, fmt.Errorf("create backup: %w", err)
	}
	return rec, nil
}

func (e *Engine) create(ctx context.Context, reason string) (*Record, error) {
	if err := EnsureDirectoryExist(e.dir); err != nil {
		return nil, err
	}
	info, err := os.Stat(e.dbPath)
	if err != nil {
		return nil, fmt.Errorf("stat source database %q: %w", e.dbPath, err)
	}

	// Informational only; a failed count must not abort the snapshot.
	storeCount := int64(StoreCountUnknown)
	if count, err := e.db.CountStores(ctx); err != nil {
		e.log.Warn("store count unavailable", "error", err.Error())
	} else {
		storeCount = count
	}

	// Read the catalog before the artifact lands on disk, otherwise
	// reconciliation would discover the new file and synthesize a second
	// entry for it.
	records, err := e.store.Read()
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	filename := NewFilename(now)
	artifactPath := filepath.Join(e.dir, filename)
	tempPath := artifactPath + ".tmp"
	defer func() {
		if err := removeIfExists(tempPath); err != nil {
			e.log.Warn("remove temporary snapshot", "path", tempPath, "error", err.Error())
		}
	}()

	// Quiesce so the copy observes a consistent file, and reconnect as soon
	// as the copy is done: the slower compression and checksum steps work on
	// the snapshot, not on the live file.
	if err := e.db.Quiesce(); err != nil {
		return nil, fmt.Errorf("quiesce database: %w", err)
	}
	copyErr := CopyFile(e.dbPath, tempPath)
	if err := e.db.Reconnect(); err != nil {
		return nil, fmt.Errorf("reconnect database: %w", err)
	}
	if copyErr != nil {
		return nil, fmt.Errorf("snapshot database: %w", copyErr)
	}

	compressedSize, err := CompressFile(tempPath, artifactPath)
	if err != nil {
		e.discardArtifact(artifactPath)
		return nil, err
	}
	checksum, err := ChecksumFile(artifactPath)
	if err != nil {
		e.discardArtifact(artifactPath)
		return nil, err
	}

	rec := Record{
		ID:             IDFromFilename(filename),
		Filename:       filename,
		CreatedAt:      now,
		Size:           info.Size(),
		CompressedSize: compressedSize,
		Checksum:       checksum,
		Status:         StatusSuccess,
		StoreCount:     storeCount,
		Reason:         reason,
	}
	if err := e.store.Write(append(records, rec)); err != nil {
		e.discardArtifact(artifactPath)
		return nil, err
	}

	e.log.Info("backup created",
		"id", rec.ID,
		"size", rec.Size,
		"compressedSize", rec.CompressedSize,
		"storeCount", rec.StoreCount,
	)
	return &rec, nil
}

// discardArtifact removes a partially written artifact so reconciliation
// never resurrects it as a success record. Best effort.
func (e *Engine) discardArtifact(path string) {
	if err := removeIfExists(path); err != nil {
		e.log.Warn("remove partial artifact", "path", path, "error", err.Error())
	}
}
