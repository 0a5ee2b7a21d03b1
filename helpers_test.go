package sitekit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

// testProfile returns a profile with the routes /, /blog and /contact.
func testProfile(t *testing.T) *SiteProfile {
	t.Helper()
	p, err := NewSiteProfile(ProfileDef{
		Name:      "acme",
		BrandName: "Acme & Co",
		BaseURL:   "https://acme.example/",
		Routes: []Route{
			{Path: "/", Label: "Home"},
			{Path: "/blog", Label: "Blog"},
			{Path: "/contact", Label: "Contact"},
		},
		Globals: map[string]string{
			"contactEmail": "hello@acme.example",
			"tagline":      "Since 1999",
		},
	})
	require.NoError(t, err)
	return p
}

func testLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := NewBuiltinLibrary()
	require.NoError(t, err)
	return lib
}

// writeFiles writes files (relative path -> content) under dir.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

const testSiteYAML = `name: acme
brandName: Acme
baseURL: https://acme.example
routes:
  - path: /
    label: Home
  - path: /contact
    label: Contact
globals:
  contactEmail: hello@acme.example
`

const testPagesYAML = `name: home
title: Welcome
sections:
  - section: nav
  - section: hero
    with:
      headline: Hello there
      ctaLink: /contact
  - section: footer
---
name: broken
sections:
  - section: hero
`

const testContactPage = `@page contact /contact "Contact us"
nav
contact-form intro="We answer within a day."
footer
`

// writeTestProject writes a small project with an accepted home page, an
// accepted contact page and a rejected page.
func writeTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		ProfileFile:             testSiteYAML,
		"pages/01-main.yaml":    testPagesYAML,
		"pages/02-contact.page": testContactPage,
		"pages/notes.txt":       "ignored",
		"sections/.keep":        "",
	})
	return dir
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  About  Us ", "about-us"},
		{"Acme & Co", "acme-co"},
		{"already-slug", "already-slug"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "index.html"},
		{"", "index.html"},
		{"/about", "about/index.html"},
		{"/docs/intro/", "docs/intro/index.html"},
		{"/../etc", "etc/index.html"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in); got != tt.want {
			t.Errorf("OutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildURL(t *testing.T) {
	if got := BuildURL("https://acme.example", "/about"); got != "https://acme.example/about/" {
		t.Errorf("BuildURL = %q", got)
	}
	if got := BuildURL("https://acme.example"); got != "https://acme.example" {
		t.Errorf("BuildURL without segments = %q", got)
	}
}
