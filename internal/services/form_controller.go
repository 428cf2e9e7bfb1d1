package services

import (
	"context"
	"errors"
	"maps"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"moneytracker/internal/core"
)

// ErrSubmitInProgress is reported when a form receives different values
// while an earlier submission is still running.
var ErrSubmitInProgress = errors.New("another submission is in progress")

// Outcome is what a form submission reports back to the page.
type Outcome struct {
	Result core.SubmissionResult
	// Err is nil when the record was accepted. Otherwise it is a
	// *core.FieldError, or wraps core.ErrRemoteRejected or
	// core.ErrTransportFailure.
	Err error
	// Values are the form values after the submission: cleared on accept
	// when the schema resets, unchanged otherwise.
	Values map[string]string
	// Shared is set when the call was coalesced onto one already in flight.
	Shared bool
}

// Message returns the user-visible feedback for the outcome.
func (o Outcome) Message(schema core.Schema) string {
	var fe *core.FieldError
	switch {
	case o.Err == nil:
		return schema.SuccessText
	case errors.Is(o.Err, ErrSubmitInProgress):
		return "Another entry is still being saved, please wait and submit again"
	case errors.As(o.Err, &fe):
		label := fe.Field
		if f, ok := schema.Field(fe.Field); ok {
			label = f.Label
		}
		return label + ": " + fe.Reason
	case errors.Is(o.Err, core.ErrTransportFailure):
		return "Could not reach the workspace, please try again: " + o.Result.Detail
	default:
		return "The workspace rejected the record: " + o.Result.Detail
	}
}

// FormController owns the input values of one form for one session. Values
// are never shared between sessions. At most one remote call is outstanding
// per controller: identical submits while it runs share its outcome, and
// different ones are refused with ErrSubmitInProgress.
type FormController struct {
	submitter *RecordSubmitter

	mu       sync.Mutex
	values   map[string]string
	inflight string // key of the running submission
	callers  int    // submits waiting on inflight

	flight singleflight.Group
}

func NewFormController(submitter *RecordSubmitter) *FormController {
	fc := &FormController{submitter: submitter}
	fc.values = fc.initialValues()
	return fc
}

func (fc *FormController) Schema() core.Schema {
	return fc.submitter.Schema()
}

func (fc *FormController) initialValues() map[string]string {
	values := make(map[string]string)
	for _, f := range fc.submitter.Schema().Fields {
		switch {
		case f.Type == core.TypeDate:
			values[f.Name] = core.Today().ISO()
		case f.SelectConstrained && len(f.Options) > 0:
			values[f.Name] = f.Options[0]
		default:
			values[f.Name] = ""
		}
	}
	return values
}

// Values returns a copy of the current form values.
func (fc *FormController) Values() map[string]string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return maps.Clone(fc.values)
}

// Submit records the entered values and submits them. The remote call is
// detached from ctx cancellation: if the caller goes away the call still
// completes or times out and its outcome only updates the stored values.
func (fc *FormController) Submit(ctx context.Context, input map[string]string) Outcome {
	schema := fc.submitter.Schema()
	values := make(map[string]string, len(schema.Fields))
	for _, f := range schema.Fields {
		values[f.Name] = input[f.Name]
	}
	key := submissionKey(schema, values)

	fc.mu.Lock()
	if fc.callers > 0 && fc.inflight != key {
		fc.mu.Unlock()
		return Outcome{Err: ErrSubmitInProgress, Values: values}
	}
	fc.inflight = key
	fc.callers++
	fc.mu.Unlock()

	v, _, shared := fc.flight.Do(key, func() (any, error) {
		return fc.submit(context.WithoutCancel(ctx), values), nil
	})

	fc.mu.Lock()
	fc.callers--
	fc.mu.Unlock()

	out := v.(Outcome)
	out.Shared = shared
	out.Values = maps.Clone(out.Values)
	return out
}

// submit runs one flight. Only the flight owner stores its values.
func (fc *FormController) submit(ctx context.Context, values map[string]string) Outcome {
	fc.mu.Lock()
	maps.Copy(fc.values, values)
	fc.mu.Unlock()

	schema := fc.submitter.Schema()
	res, err := fc.submitter.Submit(ctx, toRawInput(schema, values))

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if err == nil && schema.ResetOnAccept {
		fc.reset()
	}
	return Outcome{Result: res, Err: err, Values: maps.Clone(fc.values)}
}

// reset clears every field except the ones kept for the next entry.
// Callers hold fc.mu.
func (fc *FormController) reset() {
	for name := range fc.values {
		if !core.PreservedOnReset(name) {
			fc.values[name] = ""
		}
	}
}

// submissionKey encodes the values in schema order so that only identical
// submissions share a flight.
func submissionKey(schema core.Schema, values map[string]string) string {
	var b strings.Builder
	for _, f := range schema.Fields {
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(values[f.Name]))
		b.WriteByte(';')
	}
	return b.String()
}

// toRawInput converts form strings into validator input. Unparseable dates
// become the zero date and fail validation.
func toRawInput(schema core.Schema, values map[string]string) core.RawInput {
	raw := make(core.RawInput, len(schema.Fields))
	for _, f := range schema.Fields {
		s := values[f.Name]
		if f.Type == core.TypeDate {
			d, err := core.ParseDate(strings.TrimSpace(s))
			if err != nil {
				raw[f.Name] = core.FieldValue{Text: s}
				continue
			}
			raw[f.Name] = core.DateValue(d)
			continue
		}
		raw[f.Name] = core.TextValue(s)
	}
	return raw
}
