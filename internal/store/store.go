package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/councilsense/minutes-cli/internal/model"
)

// DBFile is the index database created inside the store directory.
const DBFile = "meetings.sqlite3"

var (
	// ErrNotFound is returned when a meeting or artifact does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrInvalidName is returned for artifact names that are not plain file names.
	ErrInvalidName = eris.New("store: invalid artifact name")
)

// MeetingFilter specifies criteria for listing meetings.
type MeetingFilter struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the persistence interface for imported meetings.
type Store interface {
	// Meetings
	UpsertMeeting(ctx context.Context, m model.Meeting) error
	GetMeeting(ctx context.Context, id string) (*model.Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]model.Meeting, error)

	// Artifacts
	PutArtifact(ctx context.Context, meetingID, name string, data []byte) (*model.Artifact, error)
	GetArtifact(ctx context.Context, meetingID, name string) ([]byte, error)
	ListArtifacts(ctx context.Context, meetingID string) ([]model.Artifact, error)

	// LLM cache
	GetLLMCache(ctx context.Context, key string) (*model.LLMCacheEntry, error)
	PutLLMCache(ctx context.Context, entry model.LLMCacheEntry) error

	// Lifecycle
	Dir() string
	Migrate(ctx context.Context) error
	Close() error
}
