package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"moneytracker/internal/core"
	applog "moneytracker/internal/log"
	"moneytracker/internal/workspace"
)

// RecordSubmitter validates raw input for one kind and delivers it to the
// workspace collection. Suggestions and events are side effects of an
// accepted record and never change the result.
type RecordSubmitter struct {
	schema       core.Schema
	collectionID string
	creator      workspace.RecordCreator
	suggestions  workspace.SuggestionStore
	publisher    workspace.EventPublisher
}

// NewRecordSubmitter creates a submitter. suggestions and publisher may be nil.
func NewRecordSubmitter(schema core.Schema, collectionID string, creator workspace.RecordCreator, suggestions workspace.SuggestionStore, publisher workspace.EventPublisher) *RecordSubmitter {
	return &RecordSubmitter{
		schema:       schema,
		collectionID: collectionID,
		creator:      creator,
		suggestions:  suggestions,
		publisher:    publisher,
	}
}

func (s *RecordSubmitter) Schema() core.Schema {
	return s.schema
}

// Submit validates raw and, when valid, delivers the record. A validation
// failure returns a *core.FieldError and makes no remote call. Otherwise the
// error is the classification of the result, nil when accepted.
func (s *RecordSubmitter) Submit(ctx context.Context, raw core.RawInput) (core.SubmissionResult, error) {
	rec, err := core.Validate(s.schema, raw)
	if err != nil {
		slog.InfoContext(ctx, "Record rejected by validation",
			applog.FieldComponent, applog.ComponentRecord,
			applog.FieldOperation, applog.OpValidate,
			applog.FieldKind, string(s.schema.Kind),
			applog.FieldError, err)
		return core.SubmissionResult{}, err
	}

	res := s.Deliver(ctx, rec)
	return res, res.Err()
}

// Deliver sends an already validated record.
func (s *RecordSubmitter) Deliver(ctx context.Context, rec core.Record) core.SubmissionResult {
	if rec.Kind != s.schema.Kind {
		return core.SubmissionResult{Detail: fmt.Sprintf("record kind %s does not match %s", rec.Kind, s.schema.Kind)}
	}

	props := workspace.BuildProperties(rec, s.schema)
	res := s.creator.CreateRecord(ctx, s.collectionID, props)
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogSubmission(ctx, string(rec.Kind), res.Accepted, res.HTTPStatus, res.Attempts, res.RemoteID, res.Err())

	if res.Accepted {
		s.afterAccepted(ctx, rec, res)
	}
	return res
}

func (s *RecordSubmitter) afterAccepted(ctx context.Context, rec core.Record, res core.SubmissionResult) {
	ctx = context.WithoutCancel(ctx)

	if s.suggestions != nil {
		for _, f := range s.schema.Fields {
			if f.Type != core.TypeEnum || f.SelectConstrained {
				continue
			}
			v := strings.TrimSpace(rec.Values[f.Name].Text)
			if v == "" {
				continue
			}
			if err := s.suggestions.Remember(ctx, f.Name, v); err != nil {
				slog.WarnContext(ctx, "Failed to remember suggestion",
					applog.FieldComponent, applog.ComponentSuggestions,
					applog.FieldOperation, applog.OpRemember,
					applog.FieldField, f.Name,
					applog.FieldError, err)
			}
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRecordCreated(ctx, rec.Kind, res); err != nil {
			slog.WarnContext(ctx, "Failed to publish record event",
				applog.FieldComponent, applog.ComponentAMQP,
				applog.FieldOperation, applog.OpPublish,
				applog.FieldKind, string(rec.Kind),
				applog.FieldRemoteID, res.RemoteID,
				applog.FieldError, err)
		}
	}
}

// Suggestions returns remembered values for every free-entry field of the
// schema, keyed by field name.
func (s *RecordSubmitter) Suggestions(ctx context.Context, limit int) map[string][]string {
	out := make(map[string][]string)
	if s.suggestions == nil {
		return out
	}
	for _, f := range s.schema.Fields {
		if f.Type != core.TypeEnum || f.SelectConstrained {
			continue
		}
		vals, err := s.suggestions.Suggestions(ctx, f.Name, limit)
		if err != nil {
			slog.WarnContext(ctx, "Failed to load suggestions",
				applog.FieldComponent, applog.ComponentSuggestions,
				applog.FieldField, f.Name,
				applog.FieldError, err)
			continue
		}
		out[f.Name] = vals
	}
	return out
}
