package sitekit

import (
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SectionRef places one section on a page, with per-call parameter
// overrides.
type SectionRef struct {
	SectionName string            `yaml:"section"`
	Overrides   map[string]string `yaml:"with"`
}

// PageSpec is the ordered list of sections that defines one page.
type PageSpec struct {
	Name     string       `yaml:"name"`
	Path     string       `yaml:"path"`
	Title    string       `yaml:"title"`
	Sections []SectionRef `yaml:"sections"`

	// Source records where the spec was read from, for error reports.
	Source string `yaml:"-"`
}

// RoutePath returns the path the page is served at: Path when set, "/" for
// pages named home or index, and "/<slug>" otherwise.
func (s PageSpec) RoutePath() string {
	if s.Path != "" {
		if p, ok := normalizeRoute(s.Path); ok {
			return p
		}
		return s.Path
	}
	switch strings.ToLower(s.Name) {
	case "home", "index":
		return "/"
	}
	return "/" + Slugify(s.Name)
}

// DocumentTitle returns Title, or the page name when no title is set.
func (s PageSpec) DocumentTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

// RenderedSection is one fully substituted section of a page module.
type RenderedSection struct {
	Name string `json:"name"`
	Role Role   `json:"role,omitempty"`
	HTML string `json:"html"`
}

// FormBinding ties an interactive section to the handler that receives its
// submissions.
type FormBinding struct {
	Section string   `json:"section"`
	Index   int      `json:"index"`
	Handler string   `json:"handler"`
	Fields  []string `json:"fields"`
	Action  string   `json:"action"`
}

// PageModule is the assembled output for one page specification.
type PageModule struct {
	PageName   string            `json:"page"`
	Path       string            `json:"path"`
	Title      string            `json:"title"`
	Sections   []RenderedSection `json:"sections"`
	UsedRoutes []string          `json:"usedRoutes"`
	Forms      []FormBinding     `json:"forms,omitempty"`
	Assets     []string          `json:"assets,omitempty"`
	Digest     string            `json:"digest"`
}

// Body returns the rendered sections concatenated in page order.
func (m *PageModule) Body() string {
	var b strings.Builder
	for _, s := range m.Sections {
		b.WriteString(s.HTML)
	}
	return b.String()
}

// Form returns the binding for the section at index, if that section is
// interactive.
func (m *PageModule) Form(index int) (FormBinding, bool) {
	for _, f := range m.Forms {
		if f.Index == index {
			return f, true
		}
	}
	return FormBinding{}, false
}

// FormAction returns the submission URL for the section at index of page.
func FormAction(page string, index int) string {
	return "/forms/" + url.PathEscape(page) + "/" + strconv.Itoa(index) + "/"
}

// DecodePages reads a stream of YAML documents, one PageSpec each. source
// names the input and is recorded on every spec.
func DecodePages(r io.Reader, source string) ([]PageSpec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var out []PageSpec
	for {
		var spec PageSpec
		err := dec.Decode(&spec)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, &ParseError{Source: source, Reason: err.Error()}
		}
		spec.Source = source
		out = append(out, spec)
	}
}
