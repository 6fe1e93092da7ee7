package model

import "time"

const CREATE_KNOWLEDGE_MAPPINGS_TABLE = `
CREATE TABLE IF NOT EXISTS knowledge_mappings (
id INTEGER PRIMARY KEY AUTOINCREMENT,
scan_config_name TEXT NOT NULL UNIQUE,
knowledge_base_id TEXT NOT NULL,
knowledge_base_name TEXT NOT NULL DEFAULT '',
enabled INTEGER NOT NULL DEFAULT 1,
created_at TEXT NOT NULL,
updated_at TEXT NOT NULL,
FOREIGN KEY(scan_config_name) REFERENCES scan_sources(name) ON DELETE CASCADE
);`

// KnowledgeBaseMapping routes records of one scan source to a knowledge base.
type KnowledgeBaseMapping struct {
	Id                int64     `json:"id"`
	ScanConfigName    string    `json:"scan_config_name"`
	KnowledgeBaseId   string    `json:"knowledge_base_id"`
	KnowledgeBaseName string    `json:"knowledge_base_name"`
	Enabled           bool      `json:"enabled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
