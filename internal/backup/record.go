package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompletedPart is one acknowledged upload part
type CompletedPart struct {
	PartNumber int64  `json:"part_number"`
	ETag       string `json:"etag"`
}

// Record identifies one backup attempt. The worker owns it exclusively for
// the lifetime of the job: created (possibly seeded by the controller) at
// start, appended to as parts succeed, frozen at finalize.
type Record struct {
	AttemptID   string          `json:"attempt_id"`
	ObjectName  string          `json:"object_name,omitempty"`
	UploadID    string          `json:"upload_id,omitempty"`
	Parts       []CompletedPart `json:"parts,omitempty"`
	ContentHash string          `json:"content_hash,omitempty"`
	State       JobState        `json:"state"`

	frozen bool
}

// NewRecord creates a record for a fresh attempt
func NewRecord() *Record {
	return &Record{
		AttemptID: uuid.New().String(),
		State:     StateIdle,
	}
}

// Seed applies controller-assigned fields to a fresh record. The managed
// tier's control plane owns the object name and upload session.
func (r *Record) Seed(objectName, uploadID string) {
	if objectName != "" {
		r.ObjectName = objectName
	}
	if uploadID != "" {
		r.UploadID = uploadID
	}
}

// AppendPart records an acknowledged part. Part numbers start at 1 and are
// strictly increasing with no gaps.
func (r *Record) AppendPart(partNumber int64, etag string) error {
	if r.frozen {
		return NewValidationError("record is frozen", nil)
	}
	expected := int64(len(r.Parts)) + 1
	if partNumber != expected {
		return NewValidationError(
			fmt.Sprintf("part number out of sequence: got %d, expected %d", partNumber, expected), nil)
	}
	r.Parts = append(r.Parts, CompletedPart{PartNumber: partNumber, ETag: etag})
	return nil
}

// Freeze seals the record with the final content hash. No parts may be
// appended afterwards.
func (r *Record) Freeze(contentHash string) {
	r.ContentHash = contentHash
	r.frozen = true
}

// ObjectNameTimeFormat lays out the UTC timestamp embedded in self-managed
// object names: two-digit day, month, year, hour, minute, no separators.
const ObjectNameTimeFormat = "020120061504"

// DeriveObjectName builds the self-managed object name from the database
// name and the current UTC time: backup_<dbName>_<ddMMyyyyHHmm>.
func DeriveObjectName(databaseName string, now time.Time) string {
	name := strings.ReplaceAll(databaseName, " ", "_")
	return fmt.Sprintf("backup_%s_%s", name, now.UTC().Format(ObjectNameTimeFormat))
}
