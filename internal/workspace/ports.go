package workspace

import (
	"context"

	"moneytracker/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordCreator delivers one property payload to a remote collection.
	// Failures are reported through the result, never as a Go error, so the
	// caller always has a status to show.
	RecordCreator interface {
		CreateRecord(ctx context.Context, collectionID string, props Properties) core.SubmissionResult
	}

	// SuggestionStore remembers values typed into free-entry enum fields so
	// forms can offer them again.
	SuggestionStore interface {
		Remember(ctx context.Context, field, value string) error
		Suggestions(ctx context.Context, field string, limit int) ([]string, error)
	}

	// EventPublisher announces accepted records to downstream consumers.
	EventPublisher interface {
		PublishRecordCreated(ctx context.Context, kind core.RecordKind, res core.SubmissionResult) error
	}
)
