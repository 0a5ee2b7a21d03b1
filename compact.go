package sitekit

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// ParseError reports a syntax error in a page file. Line is zero when the
// decoder does not report one.
type ParseError struct {
	Source string
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Reason)
}

// ParseCompact reads page specifications written in the compact page syntax:
//
//	# comment
//	@page home / "Welcome"
//	nav
//	hero headline="Fresh pasta daily" ctaLink=/menu
//	cta-banner heading="Book a table" link=/reservations
//
// An @page line opens a page with its name and an optional path and quoted
// title. Every following line places one section, with key=value overrides;
// values containing spaces are double-quoted Go string literals, so \n
// escapes work for markdown values. A file may hold several pages.
func ParseCompact(r io.Reader, source string) ([]PageSpec, error) {
	var (
		pages   []PageSpec
		current *PageSpec
		lineNo  int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fail := func(format string, args ...any) error {
			return &ParseError{Source: source, Line: lineNo, Reason: fmt.Sprintf(format, args...)}
		}
		tokens, err := tokenize(line)
		if err != nil {
			return nil, fail("%v", err)
		}

		if tokens[0].text == "@page" && !tokens[0].quoted {
			spec, err := parsePageHeader(tokens[1:])
			if err != nil {
				return nil, fail("%v", err)
			}
			spec.Source = fmt.Sprintf("%s:%d", source, lineNo)
			pages = append(pages, spec)
			current = &pages[len(pages)-1]
			continue
		}

		if current == nil {
			return nil, fail("section %q before any @page line", tokens[0].text)
		}
		if tokens[0].quoted || tokens[0].key != "" {
			return nil, fail("line must start with a section name")
		}
		ref := SectionRef{SectionName: tokens[0].text}
		for _, tok := range tokens[1:] {
			if tok.key == "" {
				return nil, fail("expected key=value, got %q", tok.text)
			}
			if ref.Overrides == nil {
				ref.Overrides = map[string]string{}
			}
			if _, dup := ref.Overrides[tok.key]; dup {
				return nil, fail("parameter %q set twice", tok.key)
			}
			ref.Overrides[tok.key] = tok.text
		}
		current.Sections = append(current.Sections, ref)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return pages, nil
}

func parsePageHeader(args []token) (PageSpec, error) {
	if len(args) == 0 || args[0].quoted || args[0].key != "" {
		return PageSpec{}, fmt.Errorf("@page needs a page name")
	}
	spec := PageSpec{Name: args[0].text}
	for _, arg := range args[1:] {
		switch {
		case arg.key != "":
			return PageSpec{}, fmt.Errorf("unexpected %s=... on @page line", arg.key)
		case arg.quoted && spec.Title == "":
			spec.Title = arg.text
		case !arg.quoted && strings.HasPrefix(arg.text, "/") && spec.Path == "":
			spec.Path = arg.text
		default:
			return PageSpec{}, fmt.Errorf("unexpected %q on @page line", arg.text)
		}
	}
	return spec, nil
}

// token is a bare word, a quoted string, or a key=value pair whose value is
// in text.
type token struct {
	key    string
	text   string
	quoted bool
}

func tokenize(line string) ([]token, error) {
	var tokens []token
	rest := line
	for {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" || strings.HasPrefix(rest, "#") {
			return tokens, nil
		}
		var tok token
		if rest[0] != '"' {
			end := strings.IndexFunc(rest, func(r rune) bool { return unicode.IsSpace(r) || r == '=' || r == '"' })
			if end < 0 {
				tokens = append(tokens, token{text: rest})
				return tokens, nil
			}
			word := rest[:end]
			rest = rest[end:]
			if rest[0] != '=' {
				if rest[0] == '"' {
					return nil, fmt.Errorf("unexpected quote after %q", word)
				}
				tokens = append(tokens, token{text: word})
				continue
			}
			if word == "" {
				return nil, fmt.Errorf("missing key before =")
			}
			tok.key = word
			rest = rest[1:]
		}
		value, remaining, quoted, err := scanValue(rest)
		if err != nil {
			return nil, err
		}
		tok.text, tok.quoted = value, quoted
		tokens = append(tokens, tok)
		rest = remaining
	}
}

func scanValue(s string) (value, rest string, quoted bool, err error) {
	if strings.HasPrefix(s, `"`) {
		lit, err := strconv.QuotedPrefix(s)
		if err != nil {
			return "", "", false, fmt.Errorf("unterminated or invalid quoted value")
		}
		value, err := strconv.Unquote(lit)
		if err != nil {
			return "", "", false, err
		}
		return value, s[len(lit):], true, nil
	}
	end := strings.IndexFunc(s, unicode.IsSpace)
	if end < 0 {
		return s, "", false, nil
	}
	return s[:end], s[end:], false, nil
}
