package sitekit

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestParseCompact(t *testing.T) {
	src := `# landing pages
@page home / "Fresh pasta"
nav
hero headline="Fresh pasta daily" ctaLink=/menu   # trailing comment
feature-grid title=Why features="- **Hand made**\n- Local flour"

@page menu
cta-banner heading="Book a table" link=/visit label=""
`
	got, err := ParseCompact(strings.NewReader(src), "home.page")
	require.NoError(t, err)

	want := []PageSpec{
		{
			Name:   "home",
			Path:   "/",
			Title:  "Fresh pasta",
			Source: "home.page:2",
			Sections: []SectionRef{
				{SectionName: "nav"},
				{SectionName: "hero", Overrides: map[string]string{"headline": "Fresh pasta daily", "ctaLink": "/menu"}},
				{SectionName: "feature-grid", Overrides: map[string]string{"title": "Why", "features": "- **Hand made**\n- Local flour"}},
			},
		},
		{
			Name:   "menu",
			Source: "home.page:7",
			Sections: []SectionRef{
				{SectionName: "cta-banner", Overrides: map[string]string{"heading": "Book a table", "link": "/visit", "label": ""}},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseCompact mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCompactErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"section before page", "hero headline=x\n", 1},
		{"page without name", "@page\n", 1},
		{"unterminated quote", "@page home\nhero headline=\"oops\n", 2},
		{"bare word argument", "@page home\nhero headline\n", 2},
		{"duplicate key", "@page home\nhero headline=a headline=b\n", 2},
		{"key on page line", "\n\n@page home title=x\n", 3},
		{"second path", "@page home / /again\n", 1},
		{"quote after word", "@page home\nhero x\"y\"\n", 2},
		{"missing key", "@page home\nhero =x\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCompact(strings.NewReader(tt.src), "p.page")
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			require.Equal(t, tt.line, pe.Line)
			require.Equal(t, "p.page", pe.Source)
		})
	}
}

func TestParseCompactAssembles(t *testing.T) {
	specs, err := ParseCompact(strings.NewReader(testContactPage), "contact.page")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Equal(t, "/contact", specs[0].RoutePath())
	require.Equal(t, "Contact us", specs[0].DocumentTitle())

	mod, err := Assemble(testLibrary(t), testProfile(t), specs[0])
	require.NoError(t, err)
	require.Contains(t, mod.Body(), "We answer within a day.")
}
