package http

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"moneytracker/internal/core"
	applog "moneytracker/internal/log"
	"moneytracker/internal/services"
)

type (
	kindView struct {
		Kind       string
		Title      string
		Heading    string
		Configured bool
		Problem    string
	}

	fieldView struct {
		core.FieldSpec
		Value       string
		Input       string // text, date, select, textarea or decimal
		Suggestions []string
		Invalid     bool
	}

	formView struct {
		Kind        string
		Title       string
		Heading     string
		Fields      []fieldView
		Message     string
		MessageType NotificationType
	}

	configErrorView struct {
		Kind    string
		Title   string
		Heading string
		Missing []string
	}

	// submitResponse is the JSON body of POST /records/{kind}.
	submitResponse struct {
		core.SubmissionResult
		Message string `json:"message"`
		Field   string `json:"field,omitempty"`
	}
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().BodyJSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports per-kind configuration. The service is ready when at
// least one kind can accept records.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK

	kinds := make(map[string]string, len(s.order))
	configured := 0
	for _, k := range s.order {
		if f := s.forms[k]; f.ConfigErr != nil {
			kinds[string(k)] = f.ConfigErr.Error()
			continue
		}
		kinds[string(k)] = "ok"
		configured++
	}
	if configured == 0 {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	NewHTMXResponse().Status(httpStatus).BodyJSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks": map[string]any{
			"kinds":        kinds,
			"sessions":     s.sessions.Size(),
			"rate_limiter": map[string]any{"active_clients": s.limiter.ActiveClients(), "rejected": s.limiter.Rejected()},
			"suspicious":   s.detector.SuspiciousCount(),
		},
	}).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	views := make([]kindView, 0, len(s.order))
	for _, k := range s.order {
		f := s.forms[k]
		v := kindView{
			Kind:       string(k),
			Title:      f.Schema.Title,
			Heading:    f.Schema.Heading,
			Configured: f.ConfigErr == nil,
		}
		if f.ConfigErr != nil {
			v.Problem = f.ConfigErr.Error()
		}
		views = append(views, v)
	}
	s.render(w, r, http.StatusOK, "index.html", struct {
		Title string
		Kinds []kindView
	}{Kinds: views})
}

// lookupForm resolves the {kind} path segment. It writes a 404 and returns
// false for unknown kinds.
func (s *Server) lookupForm(w http.ResponseWriter, r *http.Request) (Form, bool) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err == nil {
		if f, ok := s.forms[kind]; ok {
			return f, true
		}
	}
	if wantsJSON(r) {
		NewHTMXResponse().Status(http.StatusNotFound).BodyJSON(map[string]string{"error": "unknown record kind"}).Write(w)
		return Form{}, false
	}
	NotFoundError("Unknown record kind").Write(w)
	return Form{}, false
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	form, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	if form.ConfigErr != nil {
		s.renderConfigError(w, r, form)
		return
	}

	fc := s.sessions.resolve(w, r).controller(form.Schema.Kind, form.Submitter)
	view := s.formView(r, form, fc.Values(), nil, "")
	s.render(w, r, http.StatusOK, "form.html", view)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	form, ok := s.lookupForm(w, r)
	if !ok {
		return
	}
	jsonClient := wantsJSON(r)

	if form.ConfigErr != nil {
		msg := form.ConfigErr.Error()
		if jsonClient {
			NewHTMXResponse().Status(http.StatusServiceUnavailable).
				BodyJSON(submitResponse{Message: msg}).Write(w)
			return
		}
		if isHTMX(r) {
			ErrorResponse(http.StatusServiceUnavailable, msg).TriggerErrorNotification(msg).Write(w)
			return
		}
		s.renderConfigError(w, r, form)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Invalid submission body",
			applog.FieldKind, string(form.Schema.Kind),
			applog.FieldError, err)
		if jsonClient {
			NewHTMXResponse().Status(http.StatusBadRequest).BodyJSON(map[string]string{"error": err.Error()}).Write(w)
			return
		}
		BadRequestError("The submitted form could not be read.").Write(w)
		return
	}

	fc := s.controllerFor(w, r, form, parser.IsJSON())
	out := fc.Submit(r.Context(), parser.Values(form.Schema))
	msg := out.Message(form.Schema)
	status := outcomeStatus(out)

	var fe *core.FieldError
	errors.As(out.Err, &fe)

	if jsonClient {
		resp := submitResponse{SubmissionResult: out.Result, Message: msg}
		if fe != nil {
			resp.Field = fe.Field
		}
		NewHTMXResponse().Status(status).BodyJSON(resp).Write(w)
		return
	}

	notif := NotificationSuccess
	if out.Err != nil {
		notif = NotificationError
	}
	view := s.formView(r, form, out.Values, fe, msg)
	view.MessageType = notif

	if !isHTMX(r) {
		s.render(w, r, status, "form.html", view)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "form_body", view); err != nil {
		s.templateFailed(w, r, "form_body", err)
		return
	}
	b := NewHTMXResponse().Status(status).BodyHTML(buf.Bytes())
	if out.Err == nil {
		b.TriggerSuccessNotification(msg)
		if form.Schema.ResetOnAccept {
			b.TriggerFormReset(string(form.Schema.Kind))
		}
	} else {
		b.TriggerErrorNotification(msg)
	}
	b.Write(w)
}

// controllerFor returns the session's controller for the form. JSON clients
// without a session get a throwaway controller and no cookie.
func (s *Server) controllerFor(w http.ResponseWriter, r *http.Request, form Form, jsonBody bool) *services.FormController {
	if jsonBody {
		if sess, ok := s.sessions.lookup(r); ok {
			return sess.controller(form.Schema.Kind, form.Submitter)
		}
		return services.NewFormController(form.Submitter)
	}
	return s.sessions.resolve(w, r).controller(form.Schema.Kind, form.Submitter)
}

// outcomeStatus maps an outcome to the response status: 422 for local
// validation failures, 409 while a different entry is being saved, 502 when
// the workspace rejected the record or could not be reached.
func outcomeStatus(out services.Outcome) int {
	var fe *core.FieldError
	switch {
	case out.Err == nil:
		return http.StatusOK
	case errors.Is(out.Err, services.ErrSubmitInProgress):
		return http.StatusConflict
	case errors.As(out.Err, &fe):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) formView(r *http.Request, form Form, values map[string]string, fe *core.FieldError, msg string) formView {
	suggestions := form.Submitter.Suggestions(r.Context(), s.cfg.SuggestionLimit)

	fields := make([]fieldView, 0, len(form.Schema.Fields))
	for _, f := range form.Schema.Fields {
		fields = append(fields, fieldView{
			FieldSpec:   f,
			Value:       values[f.Name],
			Input:       inputFor(f),
			Suggestions: suggestions[f.Name],
			Invalid:     fe != nil && fe.Field == f.Name,
		})
	}
	return formView{
		Kind:    string(form.Schema.Kind),
		Title:   form.Schema.Title,
		Heading: form.Schema.Heading,
		Fields:  fields,
		Message: msg,
	}
}

func inputFor(f core.FieldSpec) string {
	switch {
	case f.Type == core.TypeDate:
		return "date"
	case f.Type == core.TypeEnum && f.SelectConstrained:
		return "select"
	case f.Type == core.TypeLongText:
		return "textarea"
	case f.Type.IsNumeric():
		return "decimal"
	default:
		return "text"
	}
}

func (s *Server) renderConfigError(w http.ResponseWriter, r *http.Request, form Form) {
	if wantsJSON(r) {
		NewHTMXResponse().Status(http.StatusServiceUnavailable).
			BodyJSON(map[string]any{"error": form.ConfigErr.Error(), "missing": form.ConfigErr.Missing}).
			Write(w)
		return
	}
	s.render(w, r, http.StatusServiceUnavailable, "config_error.html", configErrorView{
		Kind:    string(form.Schema.Kind),
		Title:   form.Schema.Title,
		Heading: form.Schema.Heading,
		Missing: form.ConfigErr.Missing,
	})
}

// render executes a page template into a buffer so a failure never leaves a
// half written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.templateFailed(w, r, name, err)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(buf.Bytes()).Write(w)
}

func (s *Server) templateFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
		applog.FieldComponent, applog.ComponentTemplate,
		applog.FieldOperation, applog.OpRender,
		"template", name,
		applog.FieldError, err)
	ErrorResponse(http.StatusInternalServerError, "The page could not be rendered.").Write(w)
}
