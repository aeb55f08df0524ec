package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/councilsense/minutes-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Artifacts live as
// files under dir/<meeting_id>/ and are indexed in the database.
type SQLiteStore struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// Open creates the store directory if needed, opens its index database and
// runs migrations.
func Open(ctx context.Context, dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "sqlite: create store dir %s", dir)
	}
	s, err := NewSQLite(filepath.Join(dir, DBFile))
	if err != nil {
		return nil, err
	}
	s.dir = dir
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, dir: filepath.Dir(dsn), now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS meetings (
	meeting_id       TEXT PRIMARY KEY,
	imported_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	meeting_date     TEXT NOT NULL DEFAULT '',
	meeting_location TEXT NOT NULL DEFAULT '',
	title            TEXT NOT NULL DEFAULT '',
	meeting_dir      TEXT NOT NULL,
	source_pdf_path  TEXT NOT NULL DEFAULT '',
	source_text_path TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS meeting_artifacts (
	meeting_id TEXT NOT NULL REFERENCES meetings(meeting_id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	path       TEXT NOT NULL,
	size       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (meeting_id, name)
);

CREATE TABLE IF NOT EXISTS llm_cache (
	cache_key      TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	result_json    TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	model_provider TEXT NOT NULL DEFAULT '',
	model_endpoint TEXT NOT NULL DEFAULT '',
	model          TEXT NOT NULL DEFAULT '',
	prompt_id      TEXT NOT NULL DEFAULT '',
	prompt_version INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_meetings_imported_at ON meetings(imported_at);
CREATE INDEX IF NOT EXISTS idx_llm_cache_kind ON llm_cache(kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Dir returns the root directory holding meeting folders.
func (s *SQLiteStore) Dir() string {
	return s.dir
}

// MeetingDir returns the folder that holds a meeting's artifacts.
func (s *SQLiteStore) MeetingDir(meetingID string) string {
	return filepath.Join(s.dir, meetingID)
}

func (s *SQLiteStore) UpsertMeeting(ctx context.Context, m model.Meeting) error {
	if strings.TrimSpace(m.ID) == "" {
		return eris.New("sqlite: meeting id is required")
	}
	if m.ImportedAt.IsZero() {
		m.ImportedAt = s.now().UTC()
	}
	if m.MeetingDir == "" {
		m.MeetingDir = s.MeetingDir(m.ID)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meetings (meeting_id, imported_at, meeting_date, meeting_location, title, meeting_dir, source_pdf_path, source_text_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(meeting_id) DO UPDATE SET
			meeting_date = excluded.meeting_date,
			meeting_location = excluded.meeting_location,
			title = excluded.title,
			meeting_dir = excluded.meeting_dir,
			source_pdf_path = excluded.source_pdf_path,
			source_text_path = excluded.source_text_path`,
		m.ID, m.ImportedAt, m.MeetingDate, m.MeetingLocation, m.Title, m.MeetingDir, m.SourcePDFPath, m.SourceTextPath,
	)
	return eris.Wrapf(err, "sqlite: upsert meeting %s", m.ID)
}

func (s *SQLiteStore) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT meeting_id, imported_at, meeting_date, meeting_location, title, meeting_dir, source_pdf_path, source_text_path
		 FROM meetings WHERE meeting_id = ?`,
		id,
	)
	m, err := scanMeeting(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "meeting %s", id)
	}
	return m, err
}

func (s *SQLiteStore) ListMeetings(ctx context.Context, filter MeetingFilter) ([]model.Meeting, error) {
	query := `SELECT meeting_id, imported_at, meeting_date, meeting_location, title, meeting_dir, source_pdf_path, source_text_path
		FROM meetings ORDER BY imported_at DESC, meeting_id`
	var args []any

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list meetings")
	}
	defer rows.Close() //nolint:errcheck

	meetings := []model.Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, *m)
	}
	return meetings, eris.Wrap(rows.Err(), "sqlite: list meetings iterate")
}

// PutArtifact writes data to the meeting folder and records it. The meeting
// must already exist.
func (s *SQLiteStore) PutArtifact(ctx context.Context, meetingID, name string, data []byte) (*model.Artifact, error) {
	if err := validArtifactName(name); err != nil {
		return nil, err
	}
	if _, err := s.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}

	dir := s.MeetingDir(meetingID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "sqlite: create meeting dir %s", dir)
	}
	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, data); err != nil {
		return nil, err
	}

	a := &model.Artifact{
		MeetingID: meetingID,
		Name:      name,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: s.now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO meeting_artifacts (meeting_id, name, path, size, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(meeting_id, name) DO UPDATE SET path = excluded.path, size = excluded.size, created_at = excluded.created_at`,
		a.MeetingID, a.Name, a.Path, a.Size, a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: record artifact %s/%s", meetingID, name)
	}
	return a, nil
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, meetingID, name string) ([]byte, error) {
	if err := validArtifactName(name); err != nil {
		return nil, err
	}
	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT path FROM meeting_artifacts WHERE meeting_id = ? AND name = ?`,
		meetingID, name,
	).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "artifact %s/%s", meetingID, name)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get artifact")
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, eris.Wrapf(ErrNotFound, "artifact file %s", path)
	}
	return data, eris.Wrapf(err, "sqlite: read artifact %s", path)
}

func (s *SQLiteStore) ListArtifacts(ctx context.Context, meetingID string) ([]model.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT meeting_id, name, path, size, created_at FROM meeting_artifacts WHERE meeting_id = ? ORDER BY name`,
		meetingID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list artifacts")
	}
	defer rows.Close() //nolint:errcheck

	artifacts := []model.Artifact{}
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.MeetingID, &a.Name, &a.Path, &a.Size, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan artifact")
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, eris.Wrap(rows.Err(), "sqlite: list artifacts iterate")
}

// GetLLMCache returns nil, nil on a miss.
func (s *SQLiteStore) GetLLMCache(ctx context.Context, key string) (*model.LLMCacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT cache_key, kind, result_json, created_at, model_provider, model_endpoint, model, prompt_id, prompt_version
		 FROM llm_cache WHERE cache_key = ?`,
		key,
	)

	var e model.LLMCacheEntry
	var body string
	err := row.Scan(&e.Key, &e.Kind, &body, &e.CreatedAt, &e.Provider, &e.Endpoint, &e.Model, &e.PromptID, &e.PromptVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get llm cache")
	}
	e.JSON = []byte(body)
	return &e, nil
}

func (s *SQLiteStore) PutLLMCache(ctx context.Context, e model.LLMCacheEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_cache (cache_key, kind, result_json, created_at, model_provider, model_endpoint, model, prompt_id, prompt_version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			kind = excluded.kind,
			result_json = excluded.result_json,
			created_at = excluded.created_at,
			model_provider = excluded.model_provider,
			model_endpoint = excluded.model_endpoint,
			model = excluded.model,
			prompt_id = excluded.prompt_id,
			prompt_version = excluded.prompt_version`,
		e.Key, e.Kind, string(e.JSON), e.CreatedAt, e.Provider, e.Endpoint, e.Model, e.PromptID, e.PromptVersion,
	)
	return eris.Wrap(err, "sqlite: put llm cache")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanMeeting(row scannable) (*model.Meeting, error) {
	var m model.Meeting
	err := row.Scan(&m.ID, &m.ImportedAt, &m.MeetingDate, &m.MeetingLocation, &m.Title, &m.MeetingDir, &m.SourcePDFPath, &m.SourceTextPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan meeting")
	}
	return &m, nil
}

func validArtifactName(name string) error {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return eris.Wrapf(ErrInvalidName, "%q", name)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "sqlite: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "sqlite: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "sqlite: close temp file")
	}
	return eris.Wrapf(os.Rename(tmp.Name(), path), "sqlite: rename to %s", path)
}
