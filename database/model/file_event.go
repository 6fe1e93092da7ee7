package model

import "time"

const CREATE_FILE_EVENTS_TABLE = `
CREATE TABLE IF NOT EXISTS file_events (
id INTEGER PRIMARY KEY AUTOINCREMENT,
file_id TEXT NOT NULL,
from_status TEXT,
to_status TEXT NOT NULL,
processor TEXT,
message TEXT,
at TEXT NOT NULL,
FOREIGN KEY(file_id) REFERENCES file_records(file_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_file_events_file ON file_events(file_id);`

// FileEvent is one status transition of a file record.
type FileEvent struct {
	Id         int64      `json:"id"`
	FileId     string     `json:"file_id"`
	FromStatus FileStatus `json:"from_status,omitempty"`
	ToStatus   FileStatus `json:"to_status"`
	Processor  string     `json:"processor,omitempty"`
	Message    string     `json:"message,omitempty"`
	At         time.Time  `json:"at"`
}
