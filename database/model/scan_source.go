package model

import (
	"fmt"
	"strings"
	"time"
)

type SourceKind string

const (
	SOURCE_KIND_LOCAL SourceKind = "local"
	SOURCE_KIND_FTP   SourceKind = "ftp"
)

func ParseSourceKind(s string) (SourceKind, error) {
	k := SourceKind(strings.ToLower(s))
	switch k {
	case SOURCE_KIND_LOCAL, SOURCE_KIND_FTP:
		return k, nil
	default:
		return "", fmt.Errorf("unknown source kind: %s", s)
	}
}

const DEFAULT_FTP_PORT = 21

const CREATE_SCAN_SOURCES_TABLE = `
CREATE TABLE IF NOT EXISTS scan_sources (
name TEXT PRIMARY KEY,
kind TEXT NOT NULL CHECK(kind IN ('local', 'ftp')),
config TEXT NOT NULL,
enabled INTEGER NOT NULL DEFAULT 1,
created_at TEXT NOT NULL,
updated_at TEXT NOT NULL
);`

type LocalConfig struct {
	Path      string `json:"path"`
	Recursive bool   `json:"recursive"`
}

type FtpConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	RemoteDir string `json:"remote_dir"`
}

func (f *FtpConfig) Addr() string {
	return fmt.Sprintf("%s:%d", f.Host, f.Port)
}

// ScanSource is a configured location to discover files from. Exactly one of
// Local and Ftp is set, matching Kind.
type ScanSource struct {
	Name      string       `json:"name"`
	Kind      SourceKind   `json:"kind"`
	Local     *LocalConfig `json:"local,omitempty"`
	Ftp       *FtpConfig   `json:"ftp,omitempty"`
	Enabled   bool         `json:"enabled"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// WatchPath renders the location a source points to.
func (s *ScanSource) WatchPath() string {
	switch s.Kind {
	case SOURCE_KIND_FTP:
		if s.Ftp == nil {
			return "ftp://"
		}
		return fmt.Sprintf("ftp://%s%s", s.Ftp.Addr(), s.Ftp.RemoteDir)
	default:
		if s.Local == nil {
			return ""
		}
		return s.Local.Path
	}
}

// Root is the directory listed when scanning.
func (s *ScanSource) Root() string {
	switch s.Kind {
	case SOURCE_KIND_FTP:
		if s.Ftp == nil {
			return "/"
		}
		return s.Ftp.RemoteDir
	default:
		if s.Local == nil {
			return ""
		}
		return s.Local.Path
	}
}

func (s *ScanSource) String() string {
	state := "enabled"
	if !s.Enabled {
		state = "disabled"
	}
	return fmt.Sprintf("%s [%s] %s (%s)", s.Name, s.Kind, s.WatchPath(), state)
}
