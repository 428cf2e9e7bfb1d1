package memory

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"moneytracker/internal/core"
	"moneytracker/internal/workspace"
)

// Page is a record created in the in-memory workspace.
type Page struct {
	ID         string
	Collection string
	Properties workspace.Properties
	CreatedAt  time.Time
}

// Workspace is an in-process stand-in for the hosted database, used for local
// development. Like the real service it has no dedup key: every create call
// produces a new page.
type Workspace struct {
	mu    sync.Mutex
	pages []Page
}

// Ensure interface conformance
var (
	_ workspace.RecordCreator   = (*Workspace)(nil)
	_ workspace.SuggestionStore = (*Suggestions)(nil)
)

func NewWorkspace() *Workspace {
	return &Workspace{}
}

// CreateRecord stores the properties and returns a synthetic page id.
func (w *Workspace) CreateRecord(ctx context.Context, collectionID string, props workspace.Properties) core.SubmissionResult {
	if err := ctx.Err(); err != nil {
		return core.SubmissionResult{Detail: err.Error(), Attempts: 1}
	}
	if strings.TrimSpace(collectionID) == "" {
		return core.SubmissionResult{HTTPStatus: http.StatusBadRequest, Detail: "missing database id", Attempts: 1}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	p := Page{
		ID:         uuid.NewString(),
		Collection: collectionID,
		Properties: props,
		CreatedAt:  time.Now(),
	}
	w.pages = append(w.pages, p)
	return core.SubmissionResult{Accepted: true, HTTPStatus: http.StatusOK, RemoteID: p.ID, Attempts: 1}
}

// Pages returns the pages created in a collection, oldest first.
func (w *Workspace) Pages(collectionID string) []Page {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Page
	for _, p := range w.pages {
		if p.Collection == collectionID {
			out = append(out, p)
		}
	}
	return out
}

// Suggestions keeps free-entry values in memory, ranked by use count.
type Suggestions struct {
	mu     sync.Mutex
	fields map[string]map[string]*usage
}

type usage struct {
	uses     int
	lastUsed time.Time
}

func NewSuggestions() *Suggestions {
	return &Suggestions{fields: make(map[string]map[string]*usage)}
}

func (s *Suggestions) Remember(_ context.Context, field, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	vals, ok := s.fields[field]
	if !ok {
		vals = make(map[string]*usage)
		s.fields[field] = vals
	}
	u, ok := vals[value]
	if !ok {
		u = &usage{}
		vals[value] = u
	}
	u.uses++
	u.lastUsed = time.Now()
	return nil
}

func (s *Suggestions) Suggestions(_ context.Context, field string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals := s.fields[field]
	out := make([]string, 0, len(vals))
	for v := range vals {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := vals[out[i]], vals[out[j]]
		if a.uses != b.uses {
			return a.uses > b.uses
		}
		if !a.lastUsed.Equal(b.lastUsed) {
			return a.lastUsed.After(b.lastUsed)
		}
		return out[i] < out[j]
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
