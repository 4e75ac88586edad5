package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Catalog is the caller-facing view of the backup directory: successful,
// on-disk-verified records sorted newest first, plus aggregate statistics.
type Catalog struct {
	Records    []Record   `json:"records"`
	TotalSize  int64      `json:"totalSize"`
	LastBackup *time.Time `json:"lastBackup,omitempty"`
}

// List reads the catalog, keeps only success records whose artifact is still
// present, and reports the summed compressed size and the newest capture
// time. Records are already sorted newest first by the metadata store.
func (e *Engine) List() (*Catalog, error) {
	records, err := e.store.Read()
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	catalog := &Catalog{Records: make([]Record, 0, len(records))}
	for _, rec := range records {
		if rec.Status != StatusSuccess {
			continue
		}
		if _, err := os.Stat(filepath.Join(e.dir, rec.Filename)); err != nil {
			continue
		}
		catalog.Records = append(catalog.Records, rec)
		catalog.TotalSize += rec.CompressedSize
	}
	if len(catalog.Records) > 0 {
		last := catalog.Records[0].CreatedAt
		catalog.LastBackup = &last
	}
	return catalog, nil
}

// Delete removes both the artifact and its catalog entry. A missing artifact
// does not block removing a dangling entry. Deletion deliberately skips the
// operation gate: it touches a different file than any in-flight backup or
// restore.
func (e *Engine) Delete(id string) error {
	records, err := e.store.Read()
	if err != nil {
		return fmt.Errorf("delete backup %q: %w", id, err)
	}
	idx := -1
	for i := range records {
		if records[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	path := filepath.Join(e.dir, records[idx].Filename)
	if err := removeIfExists(path); err != nil {
		e.log.Warn("remove backup artifact", "path", path, "error", err.Error())
	}
	if err := e.store.Write(append(records[:idx], records[idx+1:]...)); err != nil {
		return fmt.Errorf("delete backup %q: %w", id, err)
	}

	e.log.Info("backup deleted", "id", id)
	return nil
}
