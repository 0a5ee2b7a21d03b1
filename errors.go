package sitekit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLibraryFrozen is returned when a template is registered after the
// library has been frozen for a build.
var ErrLibraryFrozen = errors.New("section library is frozen")

// TemplateError reports a malformed template or a substitution that left
// placeholders behind.
type TemplateError struct {
	Page        string
	Section     string
	Placeholder string
	Reason      string
}

func (e *TemplateError) Error() string {
	var b strings.Builder
	b.WriteString("template error")
	if e.Page != "" {
		fmt.Fprintf(&b, " in page %q", e.Page)
	}
	if e.Section != "" {
		fmt.Fprintf(&b, " section %q", e.Section)
	}
	if e.Placeholder != "" {
		fmt.Fprintf(&b, " placeholder %q", e.Placeholder)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// NotFoundError reports a section name with no registered template.
type NotFoundError struct {
	Page    string
	Section string
}

func (e *NotFoundError) Error() string {
	if e.Page == "" {
		return fmt.Sprintf("section %q not found", e.Section)
	}
	return fmt.Sprintf("page %q: section %q not found", e.Page, e.Section)
}

// MissingParameterError reports a required parameter that had no value after
// overlay resolution.
type MissingParameterError struct {
	Page      string
	Section   string
	Parameter string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("page %q section %q: missing required parameter %q", e.Page, e.Section, e.Parameter)
}

// ProfileError reports a malformed site profile.
type ProfileError struct {
	Source string
	Reason string
}

func (e *ProfileError) Error() string {
	if e.Source == "" {
		return "profile error: " + e.Reason
	}
	return fmt.Sprintf("profile error in %s: %s", e.Source, e.Reason)
}

// StructureError reports a page whose section layout violates the navigation
// rules, or a page that collides with another page of the same site.
type StructureError struct {
	Page   string
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("page %q: structure error: %s", e.Page, e.Reason)
}

// DanglingRouteError lists every route a page links to that the site profile
// does not declare.
type DanglingRouteError struct {
	Page   string
	Routes []string
}

func (e *DanglingRouteError) Error() string {
	return fmt.Sprintf("page %q: dangling routes: %s", e.Page, strings.Join(e.Routes, ", "))
}

// PageError aggregates every error collected while building one page. It
// unwraps to the individual errors so callers can match them with errors.As.
type PageError struct {
	Page  string
	Stage Stage
	Errs  []error
}

func (e *PageError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("page %q rejected at %s: %s", e.Page, e.Stage, strings.Join(msgs, "; "))
}

func (e *PageError) Unwrap() []error {
	return e.Errs
}

// ErrorKind returns the taxonomy name of err, used in manifests and the admin
// dashboard.
func ErrorKind(err error) string {
	var (
		tmplErr    *TemplateError
		notFound   *NotFoundError
		missing    *MissingParameterError
		profileErr *ProfileError
		structErr  *StructureError
		dangling   *DanglingRouteError
		parseErr   *ParseError
	)
	switch {
	case errors.As(err, &tmplErr):
		return "TemplateError"
	case errors.As(err, &notFound):
		return "NotFoundError"
	case errors.As(err, &missing):
		return "MissingParameterError"
	case errors.As(err, &profileErr):
		return "ProfileError"
	case errors.As(err, &structErr):
		return "StructureError"
	case errors.As(err, &dangling):
		return "DanglingRouteError"
	case errors.As(err, &parseErr):
		return "ParseError"
	default:
		return "Error"
	}
}

func pageError(page string, stage Stage, errs []error) *PageError {
	return &PageError{Page: page, Stage: stage, Errs: errs}
}
