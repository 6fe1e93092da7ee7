package model

import (
	"filepipe/checksum"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"
)

type FileStatus string

const (
	FILE_STATUS_WAIT        FileStatus = "wait"
	FILE_STATUS_PROCESSING  FileStatus = "processing"
	FILE_STATUS_DOWNLOADING FileStatus = "downloading"
	FILE_STATUS_SUCCESS     FileStatus = "success"
	FILE_STATUS_FAILED      FileStatus = "failed"
	FILE_STATUS_RETRYING    FileStatus = "retrying"
)

var AllFileStatuses = []FileStatus{
	FILE_STATUS_WAIT,
	FILE_STATUS_PROCESSING,
	FILE_STATUS_DOWNLOADING,
	FILE_STATUS_SUCCESS,
	FILE_STATUS_FAILED,
	FILE_STATUS_RETRYING,
}

// statuses a worker may claim from
var ClaimableStatuses = []FileStatus{FILE_STATUS_WAIT, FILE_STATUS_RETRYING}

// statuses owned by a worker
var InFlightStatuses = []FileStatus{FILE_STATUS_PROCESSING, FILE_STATUS_DOWNLOADING}

func ParseFileStatus(s string) (FileStatus, error) {
	st := FileStatus(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(AllFileStatuses, st) {
		return st, nil
	}
	return "", fmt.Errorf("unknown file status: %s", s)
}

func (s FileStatus) IsClaimable() bool {
	return slices.Contains(ClaimableStatuses, s)
}

func (s FileStatus) IsInFlight() bool {
	return slices.Contains(InFlightStatuses, s)
}

// CanTransition reports whether a record may move from one status to another.
func CanTransition(from FileStatus, to FileStatus) bool {
	switch from {
	case FILE_STATUS_WAIT:
		// wait -> wait is a reprocess that only clears the error
		return to == FILE_STATUS_PROCESSING || to == FILE_STATUS_WAIT
	case FILE_STATUS_RETRYING:
		return to == FILE_STATUS_PROCESSING || to == FILE_STATUS_WAIT
	case FILE_STATUS_PROCESSING:
		return to == FILE_STATUS_DOWNLOADING || to == FILE_STATUS_SUCCESS || to == FILE_STATUS_FAILED
	case FILE_STATUS_DOWNLOADING:
		return to == FILE_STATUS_PROCESSING || to == FILE_STATUS_FAILED
	case FILE_STATUS_SUCCESS:
		// content changed at the source
		return to == FILE_STATUS_WAIT
	case FILE_STATUS_FAILED:
		return to == FILE_STATUS_RETRYING || to == FILE_STATUS_WAIT
	default:
		return false
	}
}

type SourceType string

const (
	SOURCE_TYPE_LOCAL SourceType = "local"
	SOURCE_TYPE_FTP   SourceType = "ftp"
	SOURCE_TYPE_STT   SourceType = "stt"
)

func SourceTypeForKind(kind SourceKind) SourceType {
	switch kind {
	case SOURCE_KIND_FTP:
		return SOURCE_TYPE_FTP
	default:
		return SOURCE_TYPE_LOCAL
	}
}

const CREATE_FILE_RECORDS_TABLE = `
CREATE TABLE IF NOT EXISTS file_records (
file_id TEXT PRIMARY KEY,

file_name TEXT NOT NULL,
path TEXT NOT NULL,
source_type TEXT NOT NULL CHECK(source_type IN ('local', 'ftp', 'stt')),
source_id TEXT NOT NULL,
parent_file_id TEXT,
file_type TEXT NOT NULL,
size INTEGER NOT NULL DEFAULT 0,
modified_at TEXT,

status TEXT NOT NULL
	CHECK(status IN ('wait', 'processing', 'downloading', 'success', 'failed', 'retrying')),
processors TEXT NOT NULL DEFAULT '[]',
error_message TEXT,
retry_count INTEGER NOT NULL DEFAULT 0,
source_tombstoned INTEGER NOT NULL DEFAULT 0,

created_at TEXT NOT NULL,
updated_at TEXT NOT NULL,
started_at TEXT,
finished_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_file_records_status ON file_records(status, file_type);
CREATE INDEX IF NOT EXISTS idx_file_records_source ON file_records(source_id);`

type FileRecord struct {
	FileId           string     `json:"file_id"`
	FileName         string     `json:"file_name"`
	Path             string     `json:"path"`
	SourceType       SourceType `json:"source_type"`
	SourceId         string     `json:"source_id"`
	ParentFileId     string     `json:"parent_file_id,omitempty"`
	FileType         string     `json:"file_type"`
	Size             int64      `json:"size"`
	ModifiedAt       time.Time  `json:"modified_at"`
	Status           FileStatus `json:"status"`
	Processors       []string   `json:"processors"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	RetryCount       int64      `json:"retry_count"`
	SourceTombstoned bool       `json:"source_tombstoned"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// NewFileId derives the stable id of a file from its source and path.
func NewFileId(sourceId string, filePath string) string {
	return checksum.HexEncodeStr(checksum.Sha256Parts(sourceId, filePath))[:32]
}

func (r *FileRecord) HasProcessor(name string) bool {
	return slices.Contains(r.Processors, name)
}

// Stem is the file name without its extension.
func (r *FileRecord) Stem() string {
	return strings.TrimSuffix(r.FileName, path.Ext(r.FileName))
}

func (r *FileRecord) String() string {
	return fmt.Sprintf("%s (%s:%s, %s)", r.FileName, r.SourceType, r.SourceId, r.Status)
}
