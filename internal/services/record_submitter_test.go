package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/workspace"
	"moneytracker/internal/workspace/memory"
	"moneytracker/internal/workspace/notion"
)

// fakeCreator records every call and replays scripted results.
type fakeCreator struct {
	mu      sync.Mutex
	calls   []workspace.Properties
	results []core.SubmissionResult
	block   chan struct{}
}

func (f *fakeCreator) CreateRecord(ctx context.Context, collectionID string, props workspace.Properties) core.SubmissionResult {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, props)
	if len(f.results) == 0 {
		return core.SubmissionResult{Accepted: true, HTTPStatus: 200, RemoteID: fmt.Sprintf("page-%d", len(f.calls)), Attempts: 1}
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res
}

func (f *fakeCreator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *fakePublisher) PublishRecordCreated(_ context.Context, kind core.RecordKind, res core.SubmissionResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, string(kind)+":"+res.RemoteID)
	return p.err
}

func schemaFor(t *testing.T, kind core.RecordKind) core.Schema {
	t.Helper()
	s, err := core.DefaultSchema(kind)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return s
}

func coffeeInput() core.RawInput {
	return core.RawInput{
		core.FieldTransaction:   core.TextValue("Coffee"),
		core.FieldDate:          core.DateValue(core.NewDate(2024, 3, 1)),
		core.FieldAmount:        core.TextValue("4.50"),
		core.FieldCategory:      core.TextValue("Food"),
		core.FieldType:          core.TextValue("Expense"),
		core.FieldPaymentMethod: core.TextValue("Cash"),
		core.FieldNote:          core.TextValue(""),
	}
}

func TestSubmitCoffeeEndToEnd(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"page-coffee"}`))
	}))
	defer srv.Close()

	client, err := notion.New(notion.Config{BaseURL: srv.URL, Token: "t", HTTPClient: srv.Client(), Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("notion.New: %v", err)
	}

	sub := NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db-daily", client, nil, nil)
	res, err := sub.Submit(context.Background(), coffeeInput())
	if err != nil || !res.Accepted || res.RemoteID != "page-coffee" {
		t.Fatalf("unexpected result %+v err=%v", res, err)
	}

	props := body["properties"].(map[string]any)
	if got := props["Amount"].(map[string]any)["number"]; got != 4.5 {
		t.Errorf("Amount.number = %v, want 4.5", got)
	}
	if got := props["Date"].(map[string]any)["date"].(map[string]any)["start"]; got != "2024-03-01" {
		t.Errorf("Date.start = %v", got)
	}
	if got := props["Type"].(map[string]any)["select"].(map[string]any)["name"]; got != "Expense" {
		t.Errorf("Type.select.name = %v", got)
	}
}

func TestSubmitInvestmentNumbers(t *testing.T) {
	creator := &fakeCreator{}
	in := coffeeInput()
	in[core.FieldAmount] = core.TextValue("1,000")
	in[core.FieldInvestmentReturn] = core.TextValue("5%")

	sub := NewRecordSubmitter(schemaFor(t, core.InvestmentEntry), "db-inv", creator, nil, nil)
	if _, err := sub.Submit(context.Background(), in); err != nil {
		t.Fatalf("submit: %v", err)
	}

	props := creator.calls[0]
	if got := string(*props["Amount"].Number); got != "1000" {
		t.Errorf("Amount = %s, want 1000", got)
	}
	if got := string(*props["Investment Return"].Number); got != "5" {
		t.Errorf("Investment Return = %s, want 5", got)
	}
}

func TestSubmitInvalidNumberMakesNoCall(t *testing.T) {
	creator := &fakeCreator{}
	in := coffeeInput()
	in[core.FieldAmount] = core.TextValue("12.34.56")

	sub := NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", creator, nil, nil)
	_, err := sub.Submit(context.Background(), in)
	if !errors.Is(err, core.ErrInvalidNumberFormat) {
		t.Fatalf("expected ErrInvalidNumberFormat, got %v", err)
	}
	if creator.callCount() != 0 {
		t.Fatalf("expected zero calls, got %d", creator.callCount())
	}
}

func TestSubmitRemoteStatuses(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   error
	}{
		{"bad request is final", []int{400}, 1, core.ErrRemoteRejected},
		{"unavailable retried once", []int{503, 503}, 2, core.ErrRemoteRejected},
		{"unavailable then ok", []int{503, 200}, 2, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.statuses[n-1])
				_, _ = w.Write([]byte(`{"id":"p","code":"validation_error","message":"bad"}`))
			}))
			defer srv.Close()

			client, err := notion.New(notion.Config{BaseURL: srv.URL, Token: "t", HTTPClient: srv.Client(), Backoff: time.Millisecond})
			if err != nil {
				t.Fatalf("notion.New: %v", err)
			}
			sub := NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", client, nil, nil)
			_, err = sub.Submit(context.Background(), coffeeInput())
			if tt.wantErr == nil && err != nil || tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got := atomic.LoadInt32(&calls); got != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestResubmitCreatesDuplicate(t *testing.T) {
	ws := memory.NewWorkspace()
	sub := NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", ws, nil, nil)

	a, errA := sub.Submit(context.Background(), coffeeInput())
	b, errB := sub.Submit(context.Background(), coffeeInput())
	if errA != nil || errB != nil {
		t.Fatalf("submits failed: %v %v", errA, errB)
	}
	if a.RemoteID == b.RemoteID {
		t.Fatalf("expected two distinct records, got %s twice", a.RemoteID)
	}
	if got := len(ws.Pages("db")); got != 2 {
		t.Fatalf("expected 2 pages, got %d", got)
	}
}

func TestAcceptedRecordFeedsSuggestionsAndEvents(t *testing.T) {
	store := memory.NewSuggestions()
	pub := &fakePublisher{}
	sub := NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", &fakeCreator{}, store, pub)

	if _, err := sub.Submit(context.Background(), coffeeInput()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	got := sub.Suggestions(context.Background(), 10)
	if len(got[core.FieldCategory]) != 1 || got[core.FieldCategory][0] != "Food" {
		t.Errorf("category suggestions = %v", got[core.FieldCategory])
	}
	if len(got[core.FieldPaymentMethod]) != 1 || got[core.FieldPaymentMethod][0] != "Cash" {
		t.Errorf("payment suggestions = %v", got[core.FieldPaymentMethod])
	}
	if _, ok := got[core.FieldType]; ok {
		t.Errorf("select-constrained type should not collect suggestions")
	}
	if len(pub.events) != 1 || pub.events[0] != "daily-expense:page-1" {
		t.Errorf("events = %v", pub.events)
	}
}

func TestRejectedRecordHasNoSideEffects(t *testing.T) {
	store := memory.NewSuggestions()
	pub := &fakePublisher{}
	creator := &fakeCreator{results: []core.SubmissionResult{{HTTPStatus: 400, Detail: "bad", Attempts: 1}}}
	sub := NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", creator, store, pub)

	if _, err := sub.Submit(context.Background(), coffeeInput()); !errors.Is(err, core.ErrRemoteRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("expected no events, got %v", pub.events)
	}
	if got := sub.Suggestions(context.Background(), 10); len(got[core.FieldCategory]) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}

func TestPublishFailureDoesNotFailSubmission(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	sub := NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", &fakeCreator{}, nil, pub)

	res, err := sub.Submit(context.Background(), coffeeInput())
	if err != nil || !res.Accepted {
		t.Fatalf("expected accepted result, got %+v err=%v", res, err)
	}
}
