package sitekit

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/a-h/templ"
	"gopkg.in/yaml.v3"
)

// Reserved global names. Profiles may set them explicitly; otherwise they
// are derived from the brand name and route table.
const (
	GlobalBrandName = "brandName"
	GlobalNavLinks  = "navLinks"
)

// Route is one entry of a site's canonical navigation.
type Route struct {
	Path  string `yaml:"path" json:"path"`
	Label string `yaml:"label" json:"label"`
}

// ProfileDef is the declarative form of a site profile, as read from
// site.yaml.
type ProfileDef struct {
	Name      string            `yaml:"name"`
	BrandName string            `yaml:"brandName"`
	BaseURL   string            `yaml:"baseURL"`
	Routes    []Route           `yaml:"routes"`
	Globals   map[string]string `yaml:"globals"`
}

// SiteProfile holds the values shared by every page of one site. It is
// immutable: accessors return copies, so a profile can be shared by
// concurrent assemblies without locking.
type SiteProfile struct {
	name      string
	brandName string
	baseURL   string
	routes    []Route
	paths     map[string]struct{}
	globals   map[string]string
	navLinks  string
}

// ProfileSource materializes a site profile from some declarative source.
type ProfileSource interface {
	LoadProfile(ctx context.Context) (*SiteProfile, error)
}

// FileProfile loads a profile from a YAML file.
type FileProfile struct {
	Path string
}

// LoadProfile reads and validates the profile file.
func (f FileProfile) LoadProfile(_ context.Context) (*SiteProfile, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("sitekit: open profile: %w", err)
	}
	defer file.Close()
	return DecodeProfile(file, f.Path)
}

// DecodeProfile reads a ProfileDef from r and validates it. source names the
// input in error messages.
func DecodeProfile(r io.Reader, source string) (*SiteProfile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var def ProfileDef
	if err := dec.Decode(&def); err != nil {
		return nil, &ProfileError{Source: source, Reason: err.Error()}
	}
	p, err := NewSiteProfile(def)
	if err != nil {
		if pe, ok := err.(*ProfileError); ok {
			pe.Source = source
		}
		return nil, err
	}
	return p, nil
}

// NewSiteProfile validates def and returns an immutable profile. It fails
// with a *ProfileError when the brand name is empty or a route path is
// missing, relative or declared twice.
func NewSiteProfile(def ProfileDef) (*SiteProfile, error) {
	brand := strings.TrimSpace(def.BrandName)
	if brand == "" {
		return nil, &ProfileError{Reason: "brandName is empty"}
	}
	p := &SiteProfile{
		name:      strings.TrimSpace(def.Name),
		brandName: brand,
		baseURL:   strings.TrimRight(strings.TrimSpace(def.BaseURL), "/"),
		routes:    make([]Route, 0, len(def.Routes)),
		paths:     make(map[string]struct{}, len(def.Routes)),
		globals:   maps.Clone(def.Globals),
	}
	if p.name == "" {
		p.name = Slugify(brand)
	}
	if p.globals == nil {
		p.globals = map[string]string{}
	}
	var nav strings.Builder
	for i, r := range def.Routes {
		path, ok := normalizeRoute(r.Path)
		if !ok {
			return nil, &ProfileError{Reason: fmt.Sprintf("route %d: path %q must start with /", i, r.Path)}
		}
		if _, dup := p.paths[path]; dup {
			return nil, &ProfileError{Reason: fmt.Sprintf("duplicate route path %q", path)}
		}
		label := strings.TrimSpace(r.Label)
		if label == "" {
			return nil, &ProfileError{Reason: fmt.Sprintf("route %q has no label", path)}
		}
		p.paths[path] = struct{}{}
		p.routes = append(p.routes, Route{Path: path, Label: label})
		fmt.Fprintf(&nav, `<li><a href="%s">%s</a></li>`, templ.EscapeString(path), templ.EscapeString(label))
	}
	p.navLinks = nav.String()
	return p, nil
}

// Name returns the site identifier.
func (p *SiteProfile) Name() string { return p.name }

// BrandName returns the brand shown across the site.
func (p *SiteProfile) BrandName() string { return p.brandName }

// BaseURL returns the canonical site URL without a trailing slash. It may be
// empty.
func (p *SiteProfile) BaseURL() string { return p.baseURL }

// Routes returns a copy of the route table in declaration order.
func (p *SiteProfile) Routes() []Route { return slices.Clone(p.routes) }

// HasRoute reports whether path, after normalization, is declared.
func (p *SiteProfile) HasRoute(path string) bool {
	n, ok := normalizeRoute(path)
	if !ok {
		return false
	}
	_, declared := p.paths[n]
	return declared
}

// Globals returns a copy of the explicitly declared globals.
func (p *SiteProfile) Globals() map[string]string { return maps.Clone(p.globals) }

// Global looks up a global value. The reserved names brandName and navLinks
// fall back to values derived from the profile.
func (p *SiteProfile) Global(key string) (string, bool) {
	if v, ok := p.globals[key]; ok {
		return v, true
	}
	switch key {
	case GlobalBrandName:
		return p.brandName, true
	case GlobalNavLinks:
		return p.navLinks, true
	}
	return "", false
}
