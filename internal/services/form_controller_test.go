package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"moneytracker/internal/core"
)

func coffeeForm() map[string]string {
	return map[string]string{
		core.FieldTransaction:   "Coffee",
		core.FieldDate:          "2024-03-01",
		core.FieldAmount:        "4.50",
		core.FieldCategory:      "Food",
		core.FieldType:          "Income",
		core.FieldPaymentMethod: "Cash",
		core.FieldNote:          "with Anna",
	}
}

func TestFormControllerInitialValues(t *testing.T) {
	fc := NewFormController(NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", &fakeCreator{}, nil, nil))

	v := fc.Values()
	if v[core.FieldDate] != core.Today().ISO() {
		t.Errorf("date = %q, want today", v[core.FieldDate])
	}
	if v[core.FieldType] != "Expense" {
		t.Errorf("type = %q, want Expense", v[core.FieldType])
	}
	if v[core.FieldAmount] != "" {
		t.Errorf("amount = %q, want empty", v[core.FieldAmount])
	}
}

func TestFormControllerResetOnAccept(t *testing.T) {
	fc := NewFormController(NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", &fakeCreator{}, nil, nil))

	out := fc.Submit(context.Background(), coffeeForm())
	if out.Err != nil || !out.Result.Accepted {
		t.Fatalf("expected accepted, got %+v", out)
	}

	for name, v := range fc.Values() {
		switch name {
		case core.FieldDate:
			if v != "2024-03-01" {
				t.Errorf("date should be kept, got %q", v)
			}
		case core.FieldType:
			if v != "Income" {
				t.Errorf("type should be kept, got %q", v)
			}
		default:
			if v != "" {
				t.Errorf("%s should be cleared, got %q", name, v)
			}
		}
	}
	if out.Values[core.FieldTransaction] != "" || out.Values[core.FieldType] != "Income" {
		t.Errorf("outcome values do not reflect reset: %v", out.Values)
	}
	if got := out.Message(fc.Schema()); got != "Expense added successfully" {
		t.Errorf("message = %q", got)
	}
}

func TestFormControllerNoResetWhenSchemaOptsOut(t *testing.T) {
	schema := schemaFor(t, core.MonthlyOverview)
	schema.ResetOnAccept = false
	fc := NewFormController(NewRecordSubmitter(schema, "db", &fakeCreator{}, nil, nil))

	in := coffeeForm()
	in[core.FieldMonthlyBudget] = "2,000"
	if out := fc.Submit(context.Background(), in); out.Err != nil {
		t.Fatalf("submit: %v", out.Err)
	}
	if got := fc.Values()[core.FieldTransaction]; got != "Coffee" {
		t.Errorf("transaction = %q, want Coffee kept", got)
	}
}

func TestFormControllerKeepsValuesOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		creator *fakeCreator
		mutate  func(map[string]string)
		wantErr error
		wantMsg string
	}{
		{
			name:    "validation",
			creator: &fakeCreator{},
			mutate:  func(m map[string]string) { m[core.FieldAmount] = "12.34.56" },
			wantErr: core.ErrInvalidNumberFormat,
			wantMsg: "Amount (use numbers only): invalid number format",
		},
		{
			name:    "missing date",
			creator: &fakeCreator{},
			mutate:  func(m map[string]string) { m[core.FieldDate] = "03/01/2024" },
			wantErr: core.ErrInvalidFieldValue,
			wantMsg: "Date: a calendar date is required",
		},
		{
			name:    "rejected",
			creator: &fakeCreator{results: []core.SubmissionResult{{HTTPStatus: 400, Detail: "validation_error: bad select", Attempts: 1}}},
			mutate:  func(map[string]string) {},
			wantErr: core.ErrRemoteRejected,
			wantMsg: "The workspace rejected the record: validation_error: bad select",
		},
		{
			name:    "transport",
			creator: &fakeCreator{results: []core.SubmissionResult{{Detail: "request timed out after 10s", Attempts: 3}}},
			mutate:  func(map[string]string) {},
			wantErr: core.ErrTransportFailure,
			wantMsg: "Could not reach the workspace",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := NewFormController(NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", tt.creator, nil, nil))
			in := coffeeForm()
			tt.mutate(in)

			out := fc.Submit(context.Background(), in)
			if !errors.Is(out.Err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", out.Err, tt.wantErr)
			}
			if got := out.Message(fc.Schema()); !strings.HasPrefix(got, tt.wantMsg) {
				t.Errorf("message = %q, want prefix %q", got, tt.wantMsg)
			}
			values := fc.Values()
			for k, v := range in {
				if values[k] != v {
					t.Errorf("%s = %q, want %q preserved", k, values[k], v)
				}
			}
		})
	}
}

func TestFormControllerCoalescesConcurrentSubmits(t *testing.T) {
	creator := &fakeCreator{block: make(chan struct{})}
	fc := NewFormController(NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", creator, nil, nil))

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[0] = fc.Submit(context.Background(), coffeeForm())
	}()
	// Give the first submit time to enter the flight.
	time.Sleep(50 * time.Millisecond)
	wg.Add(1)
	go func() {
		defer wg.Done()
		outcomes[1] = fc.Submit(context.Background(), coffeeForm())
	}()
	time.Sleep(50 * time.Millisecond)
	close(creator.block)
	wg.Wait()

	if got := creator.callCount(); got != 1 {
		t.Fatalf("expected one remote call, got %d", got)
	}
	if outcomes[0].Result.RemoteID != outcomes[1].Result.RemoteID {
		t.Fatalf("expected shared outcome, got %+v and %+v", outcomes[0], outcomes[1])
	}
	if !outcomes[1].Shared {
		t.Errorf("second submit should be marked shared")
	}
}

func TestFormControllerCallSurvivesCancelledRequest(t *testing.T) {
	creator := &fakeCreator{}
	fc := NewFormController(NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", creator, nil, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := fc.Submit(ctx, coffeeForm())
	if out.Err != nil || creator.callCount() != 1 {
		t.Fatalf("expected the call to run detached, got %+v calls=%d", out, creator.callCount())
	}
}

func TestFormControllersDoNotShareValues(t *testing.T) {
	sub := NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", &fakeCreator{results: []core.SubmissionResult{{HTTPStatus: 400, Attempts: 1}}}, nil, nil)
	a := NewFormController(sub)
	b := NewFormController(sub)

	a.Submit(context.Background(), coffeeForm())
	if got := b.Values()[core.FieldTransaction]; got != "" {
		t.Fatalf("session b saw session a's value %q", got)
	}
}

func TestFormControllerRefusesDifferentSubmitWhileBusy(t *testing.T) {
	creator := &fakeCreator{block: make(chan struct{})}
	fc := NewFormController(NewRecordSubmitter(schemaFor(t, core.DailyExpense), "db", creator, nil, nil))

	done := make(chan Outcome, 1)
	go func() { done <- fc.Submit(context.Background(), coffeeForm()) }()
	time.Sleep(50 * time.Millisecond)

	rent := coffeeForm()
	rent[core.FieldTransaction] = "Rent"
	rent[core.FieldAmount] = "1,200"
	busy := fc.Submit(context.Background(), rent)
	if !errors.Is(busy.Err, ErrSubmitInProgress) {
		t.Fatalf("err = %v, want ErrSubmitInProgress", busy.Err)
	}
	if busy.Result.Accepted || busy.Shared {
		t.Errorf("refused submit must not report the running one: %+v", busy)
	}
	if busy.Values[core.FieldTransaction] != "Rent" || busy.Values[core.FieldAmount] != "1,200" {
		t.Errorf("refused submit should keep its values, got %v", busy.Values)
	}
	if got := busy.Message(fc.Schema()); !strings.HasPrefix(got, "Another entry is still being saved") {
		t.Errorf("message = %q", got)
	}

	close(creator.block)
	first := <-done
	if first.Err != nil || !first.Result.Accepted {
		t.Fatalf("first submit: %+v", first)
	}
	if got := creator.callCount(); got != 1 {
		t.Fatalf("expected one remote call, got %d", got)
	}
	if got := creator.calls[0]["Transaction"].Title[0].Text.Content; got != "Coffee" {
		t.Errorf("sent %q, want Coffee", got)
	}

	// Once the first call is done the other entry goes through.
	again := fc.Submit(context.Background(), rent)
	if again.Err != nil || creator.callCount() != 2 {
		t.Fatalf("resubmit: %+v calls=%d", again, creator.callCount())
	}
}
