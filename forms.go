package sitekit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Submission statuses reported back to the page.
const (
	SubmitSuccess = "success"
	SubmitError   = "error"
)

var (
	// ErrUnknownField is returned when a submission carries a field the
	// section does not declare.
	ErrUnknownField = errors.New("unknown form field")

	// ErrMissingField is returned when a declared field is absent or empty.
	ErrMissingField = errors.New("missing form field")
)

// FieldError reports the offending field of a rejected submission. It
// unwraps to ErrUnknownField or ErrMissingField.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%v: %q", e.Err, e.Field) }
func (e *FieldError) Unwrap() error { return e.Err }

// Submission is one posted form, after its fields have been checked against
// the section's declaration.
type Submission struct {
	ID         string            `json:"id"`
	Site       string            `json:"site"`
	Page       string            `json:"page"`
	Section    string            `json:"section"`
	Handler    string            `json:"handler"`
	Fields     map[string]string `json:"fields"`
	ReceivedAt time.Time         `json:"receivedAt"`
}

// SubmitResult is what every handler reports back to the page: a message to
// show and a status.
type SubmitResult struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Handler processes a form submission. Handlers are registered with the
// preview server by the name sections reference.
type Handler func(ctx context.Context, sub Submission) (SubmitResult, error)

// NewSubmission checks posted values against binding and returns the
// submission. Every declared field must be present and non-blank; any other
// field is rejected.
func NewSubmission(site, page string, binding FormBinding, posted url.Values) (Submission, error) {
	declared := make(map[string]struct{}, len(binding.Fields))
	for _, f := range binding.Fields {
		declared[f] = struct{}{}
	}
	for key := range posted {
		if key == "_csrf" {
			continue
		}
		if _, ok := declared[key]; !ok {
			return Submission{}, &FieldError{Field: key, Err: ErrUnknownField}
		}
	}
	fields := make(map[string]string, len(binding.Fields))
	for _, f := range binding.Fields {
		v := strings.TrimSpace(posted.Get(f))
		if v == "" {
			return Submission{}, &FieldError{Field: f, Err: ErrMissingField}
		}
		fields[f] = v
	}
	return Submission{
		ID:         ulid.Make().String(),
		Site:       site,
		Page:       page,
		Section:    binding.Section,
		Handler:    binding.Handler,
		Fields:     fields,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// RelaySubmitter returns a Handler that forwards submissions as JSON to a
// remote endpoint and relays its {message, status} answer.
func RelaySubmitter(endpoint string, client *http.Client) Handler {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return func(ctx context.Context, sub Submission) (SubmitResult, error) {
		payload, err := json.Marshal(sub)
		if err != nil {
			return SubmitResult{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return SubmitResult{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return SubmitResult{}, fmt.Errorf("relay %s: %w", sub.Handler, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return SubmitResult{}, fmt.Errorf("relay %s: unexpected status %d", sub.Handler, resp.StatusCode)
		}
		var result SubmitResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return SubmitResult{}, fmt.Errorf("relay %s: decode response: %w", sub.Handler, err)
		}
		if result.Status == "" {
			result.Status = SubmitSuccess
		}
		return result, nil
	}
}

// StoreSubmitter returns a Handler that records submissions in the store and
// answers with message.
func StoreSubmitter(store *Store, message string) Handler {
	return func(ctx context.Context, sub Submission) (SubmitResult, error) {
		if err := store.SaveSubmission(ctx, sub); err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Message: message, Status: SubmitSuccess}, nil
	}
}
