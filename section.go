package sitekit

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
)

// Role tags a section template with a structural meaning.
type Role string

// RoleNavigation marks the site navigation block. A page holds at most one
// and it must come first.
const RoleNavigation Role = "navigation"

// Format controls how a parameter value is turned into markup before it is
// substituted into a section body.
type Format string

const (
	FormatText     Format = "text"     // HTML-escaped
	FormatHTML     Format = "html"     // sanitized
	FormatMarkdown Format = "markdown" // rendered, then sanitized
	FormatImage    Format = "image"    // asset path, escaped and recorded
)

var (
	namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

	// placeholderPattern matches a well-formed {{param}} placeholder.
	placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z][A-Za-z0-9_-]*)\s*\}\}`)

	// tokenPattern matches anything that looks like a placeholder, well-formed
	// or not. Rendered output must never contain one.
	tokenPattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)
)

// Param declares one parameter of a section template.
type Param struct {
	Required bool `yaml:"required"`
	// Default is nil when the parameter has no default value.
	Default *string `yaml:"default"`
	// InheritsGlobal lets the site profile supply the value. Global names
	// the profile key and defaults to the parameter name.
	InheritsGlobal bool   `yaml:"inheritsGlobal"`
	Global         string `yaml:"global"`
	// IsRoute marks values that are link targets inside the site.
	IsRoute bool   `yaml:"isRoute"`
	Format  Format `yaml:"format"`
}

// DefaultValue returns a pointer to s, for use as Param.Default.
func DefaultValue(s string) *string {
	return &s
}

func (p Param) globalKey(name string) string {
	if p.Global != "" {
		return p.Global
	}
	return name
}

func (p Param) format() Format {
	if p.Format == "" {
		return FormatText
	}
	return p.Format
}

// SectionTemplate is a named, parameterized page fragment.
type SectionTemplate struct {
	Name        string           `yaml:"name"`
	Role        Role             `yaml:"role"`
	Description string           `yaml:"description"`
	Parameters  map[string]Param `yaml:"parameters"`
	Body        string           `yaml:"body"`

	// Handler names the submit handler an interactive section posts to,
	// and Fields lists its input names in the order the form renders them.
	Handler string   `yaml:"handler"`
	Fields  []string `yaml:"fields"`
}

// Placeholders returns the sorted, unique placeholder names used in Body.
func (t SectionTemplate) Placeholders() []string {
	seen := map[string]struct{}{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(t.Body, -1) {
		seen[m[1]] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

func (t SectionTemplate) clone() SectionTemplate {
	t.Parameters = maps.Clone(t.Parameters)
	t.Fields = slices.Clone(t.Fields)
	return t
}

// segment is either a literal run of body text or a placeholder reference.
type segment struct {
	literal string
	param   string
}

// compiledSection is a validated template with its body pre-split into
// segments, so substitution is a single pass that never rescans values.
type compiledSection struct {
	SectionTemplate
	segments []segment
	params   []string // sorted parameter names
}

func compileSection(t SectionTemplate) (*compiledSection, error) {
	fail := func(placeholder, format string, args ...any) error {
		return &TemplateError{Section: t.Name, Placeholder: placeholder, Reason: fmt.Sprintf(format, args...)}
	}
	if !namePattern.MatchString(t.Name) {
		return nil, fail("", "invalid section name %q", t.Name)
	}
	for name, p := range t.Parameters {
		if !namePattern.MatchString(name) {
			return nil, fail(name, "invalid parameter name")
		}
		switch p.format() {
		case FormatText, FormatHTML, FormatMarkdown, FormatImage:
		default:
			return nil, fail(name, "unknown format %q", p.Format)
		}
		if p.Global != "" && !p.InheritsGlobal {
			return nil, fail(name, "global key %q set without inheritsGlobal", p.Global)
		}
	}
	if t.Handler == "" && len(t.Fields) > 0 {
		return nil, fail("", "fields declared without a handler")
	}
	if t.Handler != "" {
		if len(t.Fields) == 0 {
			return nil, fail("", "handler %q declares no fields", t.Handler)
		}
		seen := map[string]struct{}{}
		for _, f := range t.Fields {
			if !namePattern.MatchString(f) {
				return nil, fail("", "invalid field name %q", f)
			}
			if _, dup := seen[f]; dup {
				return nil, fail("", "duplicate field %q", f)
			}
			seen[f] = struct{}{}
		}
		controls := map[string]struct{}{}
		for _, name := range formControlNames(t.Body) {
			if _, declared := seen[name]; !declared {
				return nil, fail("", "form control %q is not a declared field", name)
			}
			controls[name] = struct{}{}
		}
		for _, f := range t.Fields {
			if _, ok := controls[f]; !ok {
				return nil, fail("", "declared field %q has no form control", f)
			}
		}
	}

	c := &compiledSection{
		SectionTemplate: t.clone(),
		params:          slices.Sorted(maps.Keys(t.Parameters)),
	}
	last := 0
	for _, loc := range tokenPattern.FindAllStringIndex(t.Body, -1) {
		token := t.Body[loc[0]:loc[1]]
		m := placeholderPattern.FindStringSubmatch(token)
		if m == nil || len(m[0]) != len(token) {
			return nil, fail(token, "malformed placeholder")
		}
		if _, ok := t.Parameters[m[1]]; !ok {
			return nil, fail(m[1], "placeholder has no declared parameter")
		}
		if loc[0] > last {
			c.segments = append(c.segments, segment{literal: t.Body[last:loc[0]]})
		}
		c.segments = append(c.segments, segment{param: m[1]})
		last = loc[1]
	}
	if last < len(t.Body) {
		c.segments = append(c.segments, segment{literal: t.Body[last:]})
	}
	return c, nil
}
