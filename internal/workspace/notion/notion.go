package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"moneytracker/internal/core"
	applog "moneytracker/internal/log"
	"moneytracker/internal/workspace"
)

const (
	DefaultBaseURL = "https://api.notion.com"
	DefaultVersion = "2022-06-28"

	maxBackoff     = 5 * time.Second
	maxBodyBytes   = 64 << 10
	maxDetailRunes = 300
)

// Config holds the client settings. Zero values fall back to defaults.
type Config struct {
	BaseURL     string
	Token       string
	Version     string
	Timeout     time.Duration // per attempt
	MaxAttempts int           // bound for transport failures
	Backoff     time.Duration // first retry delay, doubled per retry
	HTTPClient  *http.Client
}

// Client creates pages in Notion databases.
type Client struct {
	http        *http.Client
	endpoint    string
	token       string
	version     string
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
}

// Ensure interface conformance
var _ workspace.RecordCreator = (*Client)(nil)

type createPageRequest struct {
	Parent     parent               `json:"parent"`
	Properties workspace.Properties `json:"properties"`
}

type parent struct {
	DatabaseID string `json:"database_id"`
}

type apiError struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New validates cfg and returns a ready client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("missing notion token")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newHTTPClient()
	}

	return &Client{
		http:        cfg.HTTPClient,
		endpoint:    strings.TrimRight(cfg.BaseURL, "/") + "/v1/pages",
		token:       cfg.Token,
		version:     cfg.Version,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}, nil
}

// newHTTPClient returns a pooled client. Per-attempt deadlines come from the
// request context, so the client itself has no overall timeout.
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport}
}

// CreateRecord posts one create-page request.
//
// Transport failures are retried up to the attempt bound with exponential
// backoff, a 5xx response is retried once, and 4xx responses are final. The
// service has no idempotency key, so a retry after an ambiguous failure may
// create a second page: delivery is at-least-once.
func (c *Client) CreateRecord(ctx context.Context, collectionID string, props workspace.Properties) core.SubmissionResult {
	body, err := json.Marshal(createPageRequest{
		Parent:     parent{DatabaseID: collectionID},
		Properties: props,
	})
	if err != nil {
		return core.SubmissionResult{Detail: fmt.Sprintf("encode payload: %v", err)}
	}

	var (
		res         core.SubmissionResult
		serverRetry bool
	)
	for attempt := 1; ; attempt++ {
		start := time.Now()
		res = c.post(ctx, body)
		res.Attempts = attempt

		slog.InfoContext(ctx, "Workspace create attempt",
			applog.FieldComponent, applog.ComponentWorkspace,
			"collection_id", collectionID,
			applog.FieldAttempt, attempt,
			applog.FieldHTTPStatus, res.HTTPStatus,
			"accepted", res.Accepted,
			applog.FieldDuration, time.Since(start).Milliseconds())

		if res.Accepted || attempt >= c.maxAttempts || ctx.Err() != nil {
			return res
		}

		retry := false
		switch {
		case res.HTTPStatus == 0:
			retry = true
		case res.HTTPStatus >= 500 && !serverRetry:
			retry = true
			serverRetry = true
		}
		if !retry {
			return res
		}

		wait := backoffDelay(c.backoff, attempt)
		slog.WarnContext(ctx, "Retrying workspace create",
			applog.FieldComponent, applog.ComponentWorkspace,
			applog.FieldAttempt, attempt,
			applog.FieldHTTPStatus, res.HTTPStatus,
			"detail", res.Detail,
			"backoff_ms", wait.Milliseconds())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return res
		case <-timer.C:
		}
	}
}

func (c *Client) post(ctx context.Context, body []byte) core.SubmissionResult {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return core.SubmissionResult{Detail: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", c.version)

	resp, err := c.http.Do(req)
	if err != nil {
		return core.SubmissionResult{Detail: transportDetail(err, c.timeout)}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var page struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(data, &page)
		return core.SubmissionResult{Accepted: true, HTTPStatus: resp.StatusCode, RemoteID: page.ID}
	}

	return core.SubmissionResult{HTTPStatus: resp.StatusCode, Detail: errorDetail(data)}
}

// backoffDelay doubles base for every attempt already made, capped at maxBackoff.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func transportDetail(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("request timed out after %s", timeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("request timed out after %s", timeout)
	}
	return err.Error()
}

// errorDetail extracts the service's error message, falling back to the raw body.
func errorDetail(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		if e.Code != "" {
			return e.Code + ": " + e.Message
		}
		return e.Message
	}
	s := strings.TrimSpace(string(body))
	if r := []rune(s); len(r) > maxDetailRunes {
		s = string(r[:maxDetailRunes]) + "…"
	}
	return s
}
