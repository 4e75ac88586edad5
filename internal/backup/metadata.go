package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/ynkmodelo/backup/internal/logger"
)

const MetadataFilename = "metadata.json"

// MetadataStore is the JSON catalog of backup records kept next to the
// artifacts. The artifacts themselves are the source of truth: a lost or
// corrupted catalog is rebuilt from whatever files survive on disk.
type MetadataStore struct {
	dir string
	log logger.Logger
}

func NewMetadataStore(dir string, log logger.Logger) *MetadataStore {
	return &MetadataStore{dir: dir, log: log}
}

func (s *MetadataStore) path() string {
	return filepath.Join(s.dir, MetadataFilename)
}

// Read returns the catalog reconciled against the backup directory.
// Entries failing shape validation are dropped, artifacts with no entry are
// synthesized as recovered records, stale entries are backfilled from disk
// and duplicate filenames collapse to the best-scoring entry. Whenever
// reconciliation changed anything the healed catalog is persisted back.
func (s *MetadataStore) Read() ([]Record, error) {
	records, clean := s.readFile()
	files, err := s.scanArtifacts()
	if err != nil {
		return nil, err
	}
	reconciled, changed, err := reconcile(records, files, &dirReader{dir: s.dir})
	if err != nil {
		return nil, err
	}
	if changed || !clean {
		if err := s.Write(reconciled); err != nil {
			// The reconciled view is still valid in memory; the next Read
			// will retry the persist.
			s.log.Warn("persist reconciled metadata", "error", err.Error())
		}
	}
	return reconciled, nil
}

// Write atomically replaces the catalog file. The new content lands under a
// temporary name and is renamed over the old file, so a concurrent reader
// never observes a torn write.
func (s *MetadataStore) Write(records []Record) error {
	if err := EnsureDirectoryExist(s.dir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, MetadataFilename+".tmp-*")
	if err != nil {
		return fmt.Errorf("create metadata temp file: %w", err)
	}
	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encode metadata JSON: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close metadata temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace metadata file %q: %w", s.path(), err)
	}
	return nil
}

// readFile parses the on-disk catalog. clean is false when anything had to
// be dropped or the file could not be parsed, which forces a re-persist.
// A missing file is not corruption.
func (s *MetadataStore) readFile() ([]Record, bool) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		return nil, os.IsNotExist(err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		s.log.Warn("metadata file unreadable, rebuilding from disk", "error", err.Error())
		return nil, false
	}
	records := make([]Record, 0, len(raw))
	clean := true
	for _, entry := range raw {
		rec, err := decodeRecord(entry)
		if err != nil || rec.ID == "" || rec.Filename == "" {
			s.log.Warn("dropping invalid metadata entry", "entry", fmt.Sprintf("%v", entry))
			clean = false
			continue
		}
		records = append(records, rec)
	}
	return records, clean
}

// decodeRecord strictly maps one loosely-typed JSON entry onto the Record
// schema. Anything that does not fit the schema is an error, never a
// half-trusted record.
func decodeRecord(entry map[string]any) (Record, error) {
	var rec Record
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		Result:     &rec,
	})
	if err != nil {
		return Record{}, err
	}
	if err := decoder.Decode(entry); err != nil {
		return Record{}, fmt.Errorf("invalid catalog entry: %w", err)
	}
	return rec, nil
}

// artifactFile is what reconciliation sees of one on-disk artifact.
type artifactFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// artifactReader resolves on-disk facts lazily during reconciliation, so the
// merge logic itself stays free of filesystem access.
type artifactReader interface {
	Checksum(name string) (string, error)
	UncompressedSize(name string) (int64, error)
}

type dirReader struct {
	dir string
}

func (d *dirReader) Checksum(name string) (string, error) {
	return ChecksumFile(filepath.Join(d.dir, name))
}

func (d *dirReader) UncompressedSize(name string) (int64, error) {
	return gzipUncompressedSize(filepath.Join(d.dir, name))
}

func (s *MetadataStore) scanArtifacts() ([]artifactFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan backup directory %q: %w", s.dir, err)
	}
	var files []artifactFile
	for _, entry := range entries {
		if entry.IsDir() || !isArtifactName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, artifactFile{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

// reconcile merges parsed catalog entries with the artifacts actually on
// disk. disk is consulted only for discovered files and for entries whose
// recorded facts are missing. The returned slice is sorted newest first;
// changed reports whether it differs from the parsed input.
func reconcile(entries []Record, files []artifactFile, disk artifactReader) ([]Record, bool, error) {
	changed := false

	// Collapse duplicate filenames to the best-scoring entry.
	keep := make(map[string]Record, len(entries))
	order := make([]string, 0, len(entries))
	for _, rec := range entries {
		prev, ok := keep[rec.Filename]
		if !ok {
			keep[rec.Filename] = rec
			order = append(order, rec.Filename)
			continue
		}
		changed = true
		if rec.score() > prev.score() ||
			(rec.score() == prev.score() && rec.Size > prev.Size) {
			keep[rec.Filename] = rec
		}
	}

	byName := make(map[string]artifactFile, len(files))
	for _, f := range files {
		byName[f.Name] = f
	}

	// Backfill entries whose backing file is present but whose recorded
	// sizes or checksum are missing.
	for name, rec := range keep {
		f, ok := byName[name]
		if !ok {
			continue
		}
		if rec.CompressedSize <= 0 {
			rec.CompressedSize = f.Size
			changed = true
		}
		if rec.Checksum == "" {
			sum, err := disk.Checksum(name)
			if err != nil {
				return nil, false, fmt.Errorf("checksum artifact %q: %w", name, err)
			}
			rec.Checksum = sum
			changed = true
		}
		if rec.Size <= 0 {
			if size, err := disk.UncompressedSize(name); err == nil && size > 0 {
				rec.Size = size
				changed = true
			}
		}
		keep[name] = rec
	}

	// Artifacts with no catalog entry become recovered success records with
	// an unknown store count.
	for _, f := range files {
		if _, ok := keep[f.Name]; ok {
			continue
		}
		sum, err := disk.Checksum(f.Name)
		if err != nil {
			return nil, false, fmt.Errorf("checksum artifact %q: %w", f.Name, err)
		}
		rec := Record{
			ID:             IDFromFilename(f.Name),
			Filename:       f.Name,
			CompressedSize: f.Size,
			Checksum:       sum,
			Status:         StatusSuccess,
			StoreCount:     StoreCountUnknown,
		}
		if createdAt, ok := parseFilenameTime(f.Name); ok {
			rec.CreatedAt = createdAt
		} else {
			rec.CreatedAt = f.ModTime.UTC()
		}
		if size, err := disk.UncompressedSize(f.Name); err == nil {
			rec.Size = size
		}
		keep[f.Name] = rec
		order = append(order, f.Name)
		changed = true
	}

	out := make([]Record, 0, len(keep))
	for _, name := range order {
		out = append(out, keep[name])
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, changed, nil
}
