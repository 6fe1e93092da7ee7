package model

const CREATE_SETTINGS_TABLE = `
CREATE TABLE IF NOT EXISTS settings (
key TEXT PRIMARY KEY,
value TEXT NOT NULL
);`

const (
	SETTING_FILE_TYPES_SEEDED = "file_types_seeded"
	SETTING_PIPELINE_RUNNING  = "pipeline_running"
)
