package sitekit

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
)

// Both are safe for concurrent use once built.
var (
	markdown  = goldmark.New(goldmark.WithExtensions(extension.GFM))
	sanitizer = newSectionPolicy()
)

func newSectionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Globally()
	policy.AllowAttrs("loading").OnElements("img")
	policy.AllowElements("figure", "figcaption")
	// Internal links must keep their plain form so navigation and route
	// extraction see the same href the author wrote.
	policy.RequireNoFollowOnLinks(false)
	return policy
}

// formatValue turns a resolved parameter value into the markup substituted
// for its placeholder.
func formatValue(f Format, value string) (string, error) {
	switch f {
	case FormatText, FormatImage:
		return templ.EscapeString(value), nil
	case FormatHTML:
		return sanitizer.Sanitize(value), nil
	case FormatMarkdown:
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(value), &buf); err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		return sanitizer.Sanitize(buf.String()), nil
	default:
		return "", fmt.Errorf("unknown format %q", f)
	}
}

// routeTargets returns the internal link targets carried by a route
// parameter. Plain values are a single target; markup values contribute every
// anchor href they contain.
func routeTargets(f Format, raw, formatted string) []string {
	var candidates []string
	switch f {
	case FormatHTML, FormatMarkdown:
		candidates = linkTargets(formatted)
	default:
		candidates = []string{raw}
	}
	var routes []string
	for _, c := range candidates {
		if r, ok := normalizeRoute(c); ok {
			routes = append(routes, r)
		}
	}
	return routes
}

// normalizeRoute reports whether target is a link inside the site and
// returns its path without query, fragment or trailing slash.
func normalizeRoute(target string) (string, bool) {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "", false
	}
	if i := strings.IndexAny(target, "?#"); i >= 0 {
		target = target[:i]
	}
	if len(target) > 1 {
		target = strings.TrimRight(target, "/")
		if target == "" {
			target = "/"
		}
	}
	return target, true
}

// linkTargets returns the href of every anchor in markup, in document order.
func linkTargets(markup string) []string {
	var hrefs []string
	scanTags(markup, func(tag string, attrs map[string]string) {
		if tag == "a" {
			if href, ok := attrs["href"]; ok {
				hrefs = append(hrefs, href)
			}
		}
	})
	return hrefs
}

// formControlNames returns the name attribute of every input, textarea and
// select element in markup, in document order.
func formControlNames(markup string) []string {
	var names []string
	scanTags(markup, func(tag string, attrs map[string]string) {
		switch tag {
		case "input", "textarea", "select":
			if name, ok := attrs["name"]; ok {
				names = append(names, name)
			}
		}
	})
	return names
}

func scanTags(markup string, visit func(tag string, attrs map[string]string)) {
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; either way there is nothing left.
			return
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			attrs := make(map[string]string, len(tok.Attr))
			for _, a := range tok.Attr {
				attrs[a.Key] = a.Val
			}
			visit(tok.Data, attrs)
		}
	}
}
