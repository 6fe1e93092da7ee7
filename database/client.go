package database

import (
	"context"
	"database/sql"
	"errors"
	"filepipe/config"
	"filepipe/database/model"
	L "filepipe/logger"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var ErrDoesNotExist = errors.New("db: record does not exist")
var ErrAlreadyExists = errors.New("db: record already exists")

// DateTimeFormat sorts lexicographically, so ORDER BY on time columns works.
const DateTimeFormat = "2006-01-02T15:04:05.000000Z"

type DB struct {
	D             *sql.DB
	connectionUri string
}

func NewDB(dbPath string) (*DB, error) {
	d, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not open database %s: %w", dbPath, err)
	}
	// a single connection serializes writers, and ":memory:" would otherwise
	// hand out a fresh empty database per connection
	d.SetMaxOpenConns(1)
	return &DB{
		D:             d,
		connectionUri: dbPath,
	}, nil
}

func (d *DB) Init(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if d.connectionUri != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := d.D.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("could not apply %q: %w", p, err)
		}
	}
	err := d.createTables(ctx)
	if err != nil {
		return err
	}
	return d.seedFileTypes(ctx)
}

func (d *DB) createTables(ctx context.Context) error {
	tx, err := d.D.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, q := range []string{
		model.CREATE_SETTINGS_TABLE,
		model.CREATE_SCAN_SOURCES_TABLE,
		model.CREATE_FILE_TYPES_TABLE,
		model.CREATE_FILE_RECORDS_TABLE,
		model.CREATE_FILE_EVENTS_TABLE,
		model.CREATE_KNOWLEDGE_MAPPINGS_TABLE,
		model.CREATE_TASK_CONFIGS_TABLE,
		model.CREATE_TASK_EXECUTIONS_TABLE,
		model.CREATE_PROCESSORS_TABLE,
	} {
		_, err = tx.ExecContext(ctx, q)
		if err != nil {
			return fmt.Errorf("could not create tables: %w", err)
		}
	}
	L.Debug("db: tables are ready")
	return tx.Commit()
}

// default file types are only written on the very first Init, so rules the
// operator removed do not come back
func (d *DB) seedFileTypes(ctx context.Context) error {
	tx, err := d.D.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seeded string
	err = tx.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", model.SETTING_FILE_TYPES_SEEDED).Scan(&seeded)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("could not read settings: %w", err)
	}

	now := ToTimeStr(time.Now())
	for _, ft := range model.DEFAULT_FILE_TYPES {
		_, err = tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO file_types (extension, description, enabled, created_at) VALUES (?, ?, 1, ?)",
			ft.Extension, ft.Description, now)
		if err != nil {
			return fmt.Errorf("could not seed file type %s: %w", ft.Extension, err)
		}
	}
	_, err = tx.ExecContext(ctx, "INSERT INTO settings (key, value) VALUES (?, ?)", model.SETTING_FILE_TYPES_SEEDED, now)
	if err != nil {
		return fmt.Errorf("could not mark file types as seeded: %w", err)
	}
	L.Debug(fmt.Sprintf("db: seeded %d default file types", len(model.DEFAULT_FILE_TYPES)))
	return tx.Commit()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.D.PingContext(ctx)
}

func (d *DB) Close(ctx context.Context) error {
	return d.D.Close()
}

// GetDBFilePath returns database_path from the parsed config, falling back to
// the default config directory.
func GetDBFilePath(ctx context.Context) (string, error) {
	if p := config.Get().DatabasePath; p != "" {
		return filepath.Abs(p)
	}
	configDir, err := config.GetDefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "filepipe.db"), nil
}

func ToTimeStr(t time.Time) string {
	return t.UTC().Format(DateTimeFormat)
}

func FromTimeStr(ts string) time.Time {
	t, err := time.Parse(DateTimeFormat, ts)
	if err != nil {
		L.Error(fmt.Errorf("couldnt parse time for %s: %w", ts, err))
		return time.Time{}
	}
	return t
}

func ToNullTimeStr(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: ToTimeStr(*t), Valid: true}
}

func FromNullTimeStr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := FromTimeStr(ns.String)
	return &t
}

func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func BoolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Placeholders returns "?, ?, ?" for n arguments.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func IsForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		if se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
