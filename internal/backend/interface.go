package backend

import (
	"context"
	"time"

	"moneytracker/internal/workspace"
)

// Backend bundles the outbound adapters a running app needs.
type Backend struct {
	Creator     workspace.RecordCreator
	Suggestions workspace.SuggestionStore
	// Publisher is nil when record events are disabled.
	Publisher workspace.EventPublisher
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Workspace   WorkspaceType
	Suggestions SuggestionsType

	// Notion specific
	NotionToken       string
	NotionAPIURL      string
	NotionVersion     string
	SubmitTimeout     time.Duration
	SubmitMaxAttempts int
	SubmitBackoff     time.Duration

	// SQLite specific
	SQLiteDBPath string

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// WorkspaceType selects where records are created.
type WorkspaceType string

const (
	NotionWorkspace WorkspaceType = "notion"
	MemoryWorkspace WorkspaceType = "memory"
)

// String implements fmt.Stringer
func (wt WorkspaceType) String() string {
	return string(wt)
}

// IsValid returns true if the workspace type is valid
func (wt WorkspaceType) IsValid() bool {
	switch wt {
	case NotionWorkspace, MemoryWorkspace:
		return true
	default:
		return false
	}
}

// SuggestionsType selects where form suggestions are kept.
type SuggestionsType string

const (
	MemorySuggestions SuggestionsType = "memory"
	SQLiteSuggestions SuggestionsType = "sqlite"
)

// String implements fmt.Stringer
func (st SuggestionsType) String() string {
	return string(st)
}

// IsValid returns true if the suggestions type is valid
func (st SuggestionsType) IsValid() bool {
	switch st {
	case MemorySuggestions, SQLiteSuggestions:
		return true
	default:
		return false
	}
}
