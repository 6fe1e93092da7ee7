package model

import "time"

const CREATE_PROCESSORS_TABLE = `
CREATE TABLE IF NOT EXISTS processors (
name TEXT PRIMARY KEY,
topic TEXT NOT NULL,
enabled INTEGER NOT NULL DEFAULT 0,
consuming INTEGER NOT NULL DEFAULT 0,
processed INTEGER NOT NULL DEFAULT 0,
success INTEGER NOT NULL DEFAULT 0,
failed INTEGER NOT NULL DEFAULT 0,
skipped INTEGER NOT NULL DEFAULT 0,
updated_at TEXT NOT NULL
);`

type ProcessorStats struct {
	Processed int64 `json:"processed"`
	Success   int64 `json:"success"`
	Failed    int64 `json:"failed"`
	Skipped   int64 `json:"skipped"`
}

// ProcessorState is the persisted view of a processor. Enabled is the state
// an operator asked for, Consuming is what the serving process last reported.
type ProcessorState struct {
	Name      string         `json:"name"`
	Topic     string         `json:"topic"`
	Enabled   bool           `json:"enabled"`
	Consuming bool           `json:"consuming"`
	Stats     ProcessorStats `json:"statistics"`
	UpdatedAt time.Time      `json:"updated_at"`
}
