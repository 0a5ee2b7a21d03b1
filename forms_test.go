package sitekit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contactBinding = FormBinding{
	Section: "contact-form",
	Index:   1,
	Handler: "contact",
	Fields:  []string{"name", "email", "message"},
	Action:  "/forms/contact/1/",
}

func TestNewSubmission(t *testing.T) {
	posted := url.Values{
		"name":    {" Ada "},
		"email":   {"ada@example.com"},
		"message": {"Hello"},
		"_csrf":   {"token"},
	}
	sub, err := NewSubmission("acme", "contact", contactBinding, posted)
	require.NoError(t, err)
	require.Len(t, sub.ID, 26)
	require.Equal(t, "acme", sub.Site)
	require.Equal(t, "contact", sub.Page)
	require.Equal(t, "contact-form", sub.Section)
	require.Equal(t, "contact", sub.Handler)
	require.Equal(t, map[string]string{"name": "Ada", "email": "ada@example.com", "message": "Hello"}, sub.Fields)
	require.False(t, sub.ReceivedAt.IsZero())
}

func TestNewSubmissionRejects(t *testing.T) {
	tests := []struct {
		name   string
		posted url.Values
		field  string
		want   error
	}{
		{"unknown field", url.Values{"name": {"a"}, "email": {"b"}, "message": {"c"}, "phone": {"1"}}, "phone", ErrUnknownField},
		{"absent field", url.Values{"name": {"a"}, "email": {"b"}}, "message", ErrMissingField},
		{"blank field", url.Values{"name": {"  "}, "email": {"b"}, "message": {"c"}}, "name", ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSubmission("acme", "contact", contactBinding, tt.posted)
			require.ErrorIs(t, err, tt.want)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestRelaySubmitter(t *testing.T) {
	var received Submission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Thanks, Ada!"}`))
	}))
	defer srv.Close()

	sub, err := NewSubmission("acme", "contact", contactBinding, url.Values{"name": {"Ada"}, "email": {"a@b.c"}, "message": {"Hi"}})
	require.NoError(t, err)

	res, err := RelaySubmitter(srv.URL, srv.Client())(context.Background(), sub)
	require.NoError(t, err)
	require.Equal(t, SubmitResult{Message: "Thanks, Ada!", Status: SubmitSuccess}, res)
	require.Equal(t, sub.ID, received.ID)
	require.Equal(t, "Ada", received.Fields["name"])
}

func TestRelaySubmitterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/down":
			http.Error(w, "nope", http.StatusServiceUnavailable)
		case "/garbled":
			w.Write([]byte("<html>"))
		case "/refused":
			w.Write([]byte(`{"message":"Already subscribed.","status":"error"}`))
		}
	}))
	defer srv.Close()
	sub := Submission{Handler: "newsletter"}

	_, err := RelaySubmitter(srv.URL+"/down", nil)(context.Background(), sub)
	require.ErrorContains(t, err, "unexpected status 503")

	_, err = RelaySubmitter(srv.URL+"/garbled", nil)(context.Background(), sub)
	require.ErrorContains(t, err, "decode response")

	res, err := RelaySubmitter(srv.URL+"/refused", nil)(context.Background(), sub)
	require.NoError(t, err)
	require.Equal(t, SubmitError, res.Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = RelaySubmitter(srv.URL+"/refused", nil)(ctx, sub)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestStoreSubmitter(t *testing.T) {
	s := setupTestStore(t)
	sub, err := NewSubmission("acme", "home", FormBinding{Section: "newsletter-signup", Handler: "newsletter", Fields: []string{"email"}}, url.Values{"email": {"a@b.c"}})
	require.NoError(t, err)

	res, err := StoreSubmitter(s, "Subscribed.")(context.Background(), sub)
	require.NoError(t, err)
	require.Equal(t, SubmitResult{Message: "Subscribed.", Status: SubmitSuccess}, res)

	got, err := s.ListSubmissions(context.Background(), "acme", "newsletter")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, sub.ID, got[0].ID)
}
