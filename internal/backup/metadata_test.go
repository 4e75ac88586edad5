package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ynkmodelo/backup/internal/logger"
)

// fakeReader serves artifact facts from memory, so reconciliation logic can
// be exercised without real backups.
type fakeReader struct {
	checksums map[string]string
	sizes     map[string]int64
}

func (f *fakeReader) Checksum(name string) (string, error) {
	sum, ok := f.checksums[name]
	if !ok {
		return "", fmt.Errorf("no checksum for %s", name)
	}
	return sum, nil
}

func (f *fakeReader) UncompressedSize(name string) (int64, error) {
	size, ok := f.sizes[name]
	if !ok {
		return 0, fmt.Errorf("no size for %s", name)
	}
	return size, nil
}

func TestReconcileSynthesizesRecoveredRecords(t *testing.T) {
	name := "backup-2026-08-29-10-00-00-000Z.db.gz"
	files := []artifactFile{{Name: name, Size: 512, ModTime: time.Now()}}
	disk := &fakeReader{
		checksums: map[string]string{name: "deadbeef"},
		sizes:     map[string]int64{name: 2048},
	}

	records, changed, err := reconcile(nil, files, disk)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "backup-2026-08-29-10-00-00-000Z", rec.ID)
	assert.Equal(t, name, rec.Filename)
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.Equal(t, int64(StoreCountUnknown), rec.StoreCount)
	assert.Equal(t, "deadbeef", rec.Checksum)
	assert.Equal(t, int64(512), rec.CompressedSize)
	assert.Equal(t, int64(2048), rec.Size)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC), rec.CreatedAt)
}

func TestReconcileFallsBackToModTime(t *testing.T) {
	modTime := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	name := "backup-imported.db.gz"
	files := []artifactFile{{Name: name, Size: 100, ModTime: modTime}}
	disk := &fakeReader{
		checksums: map[string]string{name: "cafe"},
		sizes:     map[string]int64{},
	}

	records, _, err := reconcile(nil, files, disk)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].CreatedAt.Equal(modTime))
}

func TestReconcileBackfillsMissingFacts(t *testing.T) {
	name := "backup-2026-08-29-10-00-00-000Z.db.gz"
	entries := []Record{{
		ID:        "backup-2026-08-29-10-00-00-000Z",
		Filename:  name,
		CreatedAt: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		Status:    StatusSuccess,
		StoreCount: 7,
	}}
	files := []artifactFile{{Name: name, Size: 300, ModTime: time.Now()}}
	disk := &fakeReader{
		checksums: map[string]string{name: "f00d"},
		sizes:     map[string]int64{name: 900},
	}

	records, changed, err := reconcile(entries, files, disk)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, records, 1)
	assert.Equal(t, int64(300), records[0].CompressedSize)
	assert.Equal(t, int64(900), records[0].Size)
	assert.Equal(t, "f00d", records[0].Checksum)
	assert.Equal(t, int64(7), records[0].StoreCount)
}

func TestReconcileDeduplicatesByScore(t *testing.T) {
	name := "backup-2026-08-29-10-00-00-000Z.db.gz"
	created := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	entries := []Record{
		{ID: "a", Filename: name, CreatedAt: created, Status: StatusError, Checksum: "x", Size: 10, CompressedSize: 5, StoreCount: 3, Error: "disk full"},
		{ID: "a", Filename: name, CreatedAt: created, Status: StatusSuccess, Checksum: "x", Size: 10, CompressedSize: 5, StoreCount: 3},
	}

	records, changed, err := reconcile(entries, nil, &fakeReader{})
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, records, 1)
	assert.Equal(t, StatusSuccess, records[0].Status)
}

func TestReconcileDeduplicatesTieBreaksOnSize(t *testing.T) {
	name := "backup-2026-08-29-10-00-00-000Z.db.gz"
	created := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	entries := []Record{
		{ID: "a", Filename: name, CreatedAt: created, Status: StatusSuccess, Checksum: "x", Size: 10, CompressedSize: 5, StoreCount: 3},
		{ID: "a", Filename: name, CreatedAt: created, Status: StatusSuccess, Checksum: "x", Size: 99, CompressedSize: 5, StoreCount: 3},
	}

	records, _, err := reconcile(entries, nil, &fakeReader{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(99), records[0].Size)
}

func TestReconcileReportsNoChangeForHealthyCatalog(t *testing.T) {
	name := "backup-2026-08-29-10-00-00-000Z.db.gz"
	entries := []Record{{
		ID:             "backup-2026-08-29-10-00-00-000Z",
		Filename:       name,
		CreatedAt:      time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		Size:           900,
		CompressedSize: 300,
		Checksum:       "f00d",
		Status:         StatusSuccess,
		StoreCount:     7,
	}}
	files := []artifactFile{{Name: name, Size: 300, ModTime: time.Now()}}

	records, changed, err := reconcile(entries, files, &fakeReader{})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, records, 1)
}

func writeArtifact(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	source := filepath.Join(dir, "tmp-source")
	require.NoError(t, os.WriteFile(source, []byte(content), 0o644))
	artifact := filepath.Join(dir, name)
	_, err := CompressFile(source, artifact)
	require.NoError(t, err)
	require.NoError(t, os.Remove(source))
	return artifact
}

func TestMetadataStoreHealsCorruptCatalog(t *testing.T) {
	dir := t.TempDir()
	name := "backup-2026-08-29-10-00-00-000Z.db.gz"
	writeArtifact(t, dir, name, "database bytes")
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFilename), []byte("{not json"), 0o644))

	store := NewMetadataStore(dir, logger.Nop())
	records, err := store.Read()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, StatusSuccess, records[0].Status)
	assert.Equal(t, int64(StoreCountUnknown), records[0].StoreCount)

	// The healed catalog was persisted back as valid JSON.
	data, err := os.ReadFile(filepath.Join(dir, MetadataFilename))
	require.NoError(t, err)
	var onDisk []Record
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Len(t, onDisk, 1)
}

func TestMetadataStoreDropsInvalidEntries(t *testing.T) {
	dir := t.TempDir()
	name := "backup-2026-08-29-10-00-00-000Z.db.gz"
	writeArtifact(t, dir, name, "database bytes")

	sum, err := ChecksumFile(filepath.Join(dir, name))
	require.NoError(t, err)

	raw := fmt.Sprintf(`[
		{"note": "no id or filename here"},
		{"id": "bad-size", "filename": "backup-2026-08-29-11-00-00-000Z.db.gz", "size": "not a number"},
		{"id": "backup-2026-08-29-10-00-00-000Z", "filename": %q,
		 "createdAt": "2026-08-29T10:00:00Z", "size": 14, "compressedSize": 1,
		 "checksum": %q, "status": "success", "storeCount": 4}
	]`, name, sum)
	require.NoError(t, os.WriteFile(filepath.Join(dir, MetadataFilename), []byte(raw), 0o644))

	store := NewMetadataStore(dir, logger.Nop())
	records, err := store.Read()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(4), records[0].StoreCount)
}

func TestMetadataStoreWriteIsAtomicOverwrite(t *testing.T) {
	dir := t.TempDir()
	store := NewMetadataStore(dir, logger.Nop())

	first := []Record{{ID: "a", Filename: "backup-2026-08-29-10-00-00-000Z.db.gz", Status: StatusSuccess}}
	require.NoError(t, store.Write(first))
	second := []Record{{ID: "b", Filename: "backup-2026-08-29-11-00-00-000Z.db.gz", Status: StatusSuccess}}
	require.NoError(t, store.Write(second))

	data, err := os.ReadFile(filepath.Join(dir, MetadataFilename))
	require.NoError(t, err)
	var onDisk []Record
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Len(t, onDisk, 1)
	assert.Equal(t, "b", onDisk[0].ID)

	// No leftover temp files from the rename dance.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
