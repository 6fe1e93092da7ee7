package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const CREATE_FILE_TYPES_TABLE = `
CREATE TABLE IF NOT EXISTS file_types (
extension TEXT PRIMARY KEY,
description TEXT NOT NULL DEFAULT '',
enabled INTEGER NOT NULL DEFAULT 1,
created_at TEXT NOT NULL
);`

type FileTypeRule struct {
	Extension   string    `json:"extension"`
	Description string    `json:"description"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

var DEFAULT_FILE_TYPES = []FileTypeRule{
	{Extension: ".wav", Description: "WAV audio"},
	{Extension: ".mp3", Description: "MP3 audio"},
	{Extension: ".m4a", Description: "M4A audio"},
	{Extension: ".flac", Description: "FLAC audio"},
	{Extension: ".txt", Description: "Plain text"},
	{Extension: ".md", Description: "Markdown"},
	{Extension: ".pdf", Description: "PDF document"},
	{Extension: ".doc", Description: "Word document"},
	{Extension: ".docx", Description: "Word document"},
}

var AudioExtensions = []string{
	".wav", ".mp3", ".m4a", ".flac", ".aac", ".ogg", ".wma", ".opus", ".aiff", ".au",
}

var TextExtensions = []string{
	".txt", ".md", ".csv", ".pdf", ".doc", ".docx", ".xlsx", ".json", ".html",
}

// NormalizeExtension lowercases ext and makes sure it starts with a dot.
func NormalizeExtension(ext string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(ext))
	if e == "" || e == "." {
		return "", fmt.Errorf("extension is empty")
	}
	if strings.ContainsAny(e, `/\ `) {
		return "", fmt.Errorf("extension %q contains invalid characters", ext)
	}
	if !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	if strings.Count(e, ".") > 1 {
		return "", fmt.Errorf("extension %q has more than one dot", ext)
	}
	return e, nil
}

func IsAudioExtension(ext string) bool {
	return slices.Contains(AudioExtensions, strings.ToLower(ext))
}

func IsTextExtension(ext string) bool {
	return slices.Contains(TextExtensions, strings.ToLower(ext))
}
