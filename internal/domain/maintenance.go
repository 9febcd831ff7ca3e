package domain

import "github.com/google/uuid"

// Scan defaults.
const (
	DefaultScanBatchSize  = 500
	DefaultScanSampleSize = 20
)

// ReviewRef is the minimal projection the maintenance scan reads.
type ReviewRef struct {
	ID        string
	ContentID *string
}

// IsWellFormedContentID reports whether id is a content id in the canonical
// lower-case hyphenated form. Reviews are stored with that form, so any other
// spelling (upper case, braces, urn prefix, no hyphens) never matches a
// content row and counts as malformed.
func IsWellFormedContentID(id *string) bool {
	if id == nil {
		return false
	}
	u, err := uuid.Parse(*id)
	return err == nil && u.String() == *id
}

// ScanOptions bounds one maintenance scan. Limit 0 scans everything.
type ScanOptions struct {
	Limit      int
	BatchSize  int
	SampleSize int
}

// SampleEntry is one flagged review shown to the operator.
type SampleEntry struct {
	ID        string  `json:"id"`
	ContentID *string `json:"content_id"`
}

// ScanSample holds bounded examples of each problem class.
type ScanSample struct {
	Malformed []SampleEntry `json:"malformed"`
	Orphaned  []SampleEntry `json:"orphaned"`
}

// ScanReport is the dry-run result. IDs is what an operator passes back to
// purge.
type ScanReport struct {
	TotalScanned   int        `json:"total_scanned"`
	MalformedCount int        `json:"malformed_count"`
	OrphanedCount  int        `json:"orphaned_count"`
	ToDeleteCount  int        `json:"to_delete_count"`
	Sample         ScanSample `json:"sample"`
	IDs            []string   `json:"ids"`
}

// PurgeResult reports how many rows a purge removed.
type PurgeResult struct {
	Deleted              int      `json:"deleted"`
	RecomputedContentIDs []string `json:"recomputed_content_ids"`
}
