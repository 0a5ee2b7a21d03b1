package sitekit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/", "/", true},
		{"/about/", "/about", true},
		{" /blog?page=2 ", "/blog", true},
		{"/faq#shipping", "/faq", true},
		{"/#top", "/", true},
		{"///", "", false},
		{"//cdn.example/x", "", false},
		{"https://acme.example/", "", false},
		{"mailto:a@b.c", "", false},
		{"#top", "", false},
		{"relative", "", false},
	}
	for _, tt := range tests {
		got, ok := normalizeRoute(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("normalizeRoute(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		in     string
		want   string
	}{
		{"text escapes", FormatText, `Tom & "Jerry" <3`, "Tom &amp; &#34;Jerry&#34; &lt;3"},
		{"image escapes", FormatImage, `/a.jpg" onerror="x`, "/a.jpg&#34; onerror=&#34;x"},
		{"html keeps links", FormatHTML, `<a href="/blog">Blog</a>`, `<a href="/blog">Blog</a>`},
		{"html drops scripts", FormatHTML, `<b>hi</b><script>x()</script>`, "<b>hi</b>"},
		{"html drops handlers", FormatHTML, `<img src="/a.png" onerror="x()">`, `<img src="/a.png">`},
		{"markdown renders", FormatMarkdown, "**hi**", "<p><strong>hi</strong></p>\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatValue(tt.format, tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	table, err := formatValue(FormatMarkdown, "| a |\n|---|\n| b |")
	require.NoError(t, err)
	require.Contains(t, table, "<td>b</td>")

	_, err = formatValue("rtf", "x")
	require.Error(t, err)
}

func TestRouteTargets(t *testing.T) {
	require.Equal(t, []string{"/menu"}, routeTargets(FormatText, "/menu/", "/menu/"))
	require.Empty(t, routeTargets(FormatText, "https://x.example", "https://x.example"))

	markup := `<a href="/a">A</a><a href="https://b.example">B</a><a href="/c/?q=1">C</a><a name="x">D</a>`
	require.Equal(t, []string{"/a", "/c"}, routeTargets(FormatHTML, "", markup))
}

func TestFormControlNames(t *testing.T) {
	markup := `<form><input name="a"><textarea name="b"></textarea><select name="c"></select><input type="submit"><button name="d">x</button></form>`
	require.Equal(t, []string{"a", "b", "c"}, formControlNames(markup))
}
