package backup

import (
	"strconv"
	"strings"
	"time"
)

const (
	filePrefix = "backup-"
	fileSuffix = ".db.gz"

	timestampLayout = "2006-01-02-15-04-05"
)

// StoreCountUnknown marks records recovered purely from disk scanning,
// where the store count at capture time is lost.
const StoreCountUnknown = -1

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record describes one stored snapshot of the live database.
// Size is the uncompressed source size at capture time; Checksum is the
// SHA-256 hex digest of the compressed artifact, never of its content.
type Record struct {
	ID             string    `json:"id"               mapstructure:"id"`
	Filename       string    `json:"filename"         mapstructure:"filename"`
	CreatedAt      time.Time `json:"createdAt"        mapstructure:"createdAt"`
	Size           int64     `json:"size"             mapstructure:"size"`
	CompressedSize int64     `json:"compressedSize"   mapstructure:"compressedSize"`
	Checksum       string    `json:"checksum"         mapstructure:"checksum"`
	Status         string    `json:"status"           mapstructure:"status"`
	StoreCount     int64     `json:"storeCount"       mapstructure:"storeCount"`
	Reason         string    `json:"reason,omitempty" mapstructure:"reason"`
	Error          string    `json:"error,omitempty"  mapstructure:"error"`
}

// score ranks duplicate catalog entries pointing at the same filename.
// Higher wins; callers break ties by the larger recorded size.
func (r *Record) score() int {
	s := 0
	if r.Status == StatusSuccess {
		s += 100
	}
	if r.Checksum != "" {
		s += 20
	}
	if r.Size > 0 {
		s += 10
	}
	if r.CompressedSize > 0 {
		s += 5
	}
	if r.StoreCount >= 0 {
		s += 5
	}
	return s
}

// NewFilename builds the canonical artifact name for a snapshot taken at ts,
// e.g. backup-2026-08-29-14-03-07-042Z.db.gz.
func NewFilename(ts time.Time) string {
	return filePrefix + formatTimestamp(ts) + fileSuffix
}

// IDFromFilename derives the stable backup id: the filename without its
// extension.
func IDFromFilename(name string) string {
	return strings.TrimSuffix(name, fileSuffix)
}

func isArtifactName(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix)
}

// formatTimestamp renders ts as the canonical UTC filename timestamp:
// second precision plus zero-padded milliseconds and a literal trailing Z.
func formatTimestamp(ts time.Time) string {
	ts = ts.UTC()
	ms := ts.Nanosecond() / int(time.Millisecond)
	return ts.Format(timestampLayout) + "-" + pad3(ms) + "Z"
}

func pad3(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}

// parseFilenameTime recovers the capture timestamp encoded in a canonical
// artifact name. ok is false for names that do not match the pattern;
// callers then fall back to the file's modification time.
func parseFilenameTime(name string) (time.Time, bool) {
	if !isArtifactName(name) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	if len(stamp) != len(timestampLayout)+5 {
		return time.Time{}, false
	}
	sec := stamp[:len(timestampLayout)]
	rest := stamp[len(timestampLayout):]
	if rest[0] != '-' || rest[4] != 'Z' {
		return time.Time{}, false
	}
	base, err := time.Parse(timestampLayout, sec)
	if err != nil {
		return time.Time{}, false
	}
	ms, err := strconv.Atoi(rest[1:4])
	if err != nil {
		return time.Time{}, false
	}
	return base.Add(time.Duration(ms) * time.Millisecond), true
}
