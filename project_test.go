package sitekit

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoadProject(t *testing.T) {
	dir := writeTestProject(t)
	p, err := LoadProject(context.Background(), dir, nil)
	require.NoError(t, err)

	var names []string
	for _, spec := range p.Pages {
		names = append(names, spec.Name)
	}
	require.Equal(t, []string{"home", "broken", "contact"}, names)
	require.Equal(t, "pages/01-main.yaml", p.Pages[0].Source)
	require.Equal(t, "pages/02-contact.page:1", p.Pages[2].Source)

	m, err := p.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Accepted(), 2)
	rejected := m.Rejected()
	require.Len(t, rejected, 1)
	require.Equal(t, "broken", rejected[0].Page)
	require.Equal(t, "pages/01-main.yaml", rejected[0].Source)
}

func TestLoadProjectOverridesSections(t *testing.T) {
	dir := writeTestProject(t)
	writeFiles(t, dir, map[string]string{
		"sections/hero.yaml": `name: hero
parameters:
  headline:
    required: true
  ctaLink:
    default: /contact
    isRoute: true
body: <h1 class="custom">{{headline}}</h1><a href="{{ctaLink}}">Go</a>
`,
	})
	base := testLibrary(t)
	p, err := LoadProject(context.Background(), dir, base)
	require.NoError(t, err)

	hero, err := p.Library.Get("hero")
	require.NoError(t, err)
	require.Contains(t, hero.Body, "custom")

	original, err := base.Get("hero")
	require.NoError(t, err)
	require.NotContains(t, original.Body, "custom")

	m, err := p.Build(context.Background())
	require.NoError(t, err)
	home, ok := m.Page("home")
	require.True(t, ok)
	require.Contains(t, home.Body(), `<h1 class="custom">Hello there</h1>`)
	require.False(t, base.Frozen(), "building a project must not freeze the shared base")
}

func TestLoadProjectErrors(t *testing.T) {
	ctx := context.Background()

	_, err := LoadProject(ctx, t.TempDir(), nil)
	require.Error(t, err, "missing site.yaml")

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{ProfileFile: testSiteYAML})
	_, err = LoadProject(ctx, dir, nil)
	require.ErrorContains(t, err, "load pages")

	writeFiles(t, dir, map[string]string{"pages/bad.page": "hero headline=x\n"})
	p, err := LoadProject(ctx, dir, nil)
	require.NoError(t, err)
	require.Empty(t, p.Pages)
	require.Len(t, p.Invalid, 1)
	require.Equal(t, "pages/bad.page", p.Invalid[0].Source)
}

func TestLoadProjectSkipsUnparsableFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		ProfileFile:       testSiteYAML,
		"pages/home.yaml": "name: home\nsections:\n  - section: nav\n  - section: hero\n    with:\n      headline: Hi\n",
		"pages/blog.page": "@page blog\nhero headline=\"unterminated\n",
	})
	p, err := LoadProject(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, p.Pages, 1)
	require.Len(t, p.Invalid, 1)

	m, err := p.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, m.Pages, 2)

	home, ok := m.Page("home")
	require.True(t, ok)
	require.Equal(t, "/", home.Path)

	bad := m.Pages[1]
	require.Equal(t, "blog", bad.Page)
	require.Equal(t, StatusRejected, bad.Status)
	require.Equal(t, StageSpecified, bad.Stage)
	require.Equal(t, "pages/blog.page", bad.Source)
	require.Len(t, bad.Errors, 1)
	require.Equal(t, "ParseError", ErrorKind(bad.Errors[0]))
	require.Contains(t, bad.Errors[0].Error(), "pages/blog.page:2:")

	r := NewReport(m)
	require.Equal(t, 1, r.Accepted)
	require.Equal(t, 1, r.Rejected)
}

func TestLoadPages(t *testing.T) {
	fsys := fstest.MapFS{
		"pages/b.yml":      {Data: []byte("name: second\nsections:\n  - section: nav\n")},
		"pages/a.page":     {Data: []byte("@page first\nnav\n")},
		"pages/c.md":       {Data: []byte("# not a page")},
		"pages/sub/x.page": {Data: []byte("@page nested\nnav\n")},
	}
	specs, invalid, err := LoadPages(fsys, "pages")
	require.NoError(t, err)
	require.Empty(t, invalid)
	require.Len(t, specs, 2)
	require.Equal(t, "first", specs[0].Name)
	require.Equal(t, "second", specs[1].Name)

	specs, invalid, err = LoadPages(fstest.MapFS{
		"pages/bad.yaml":  {Data: []byte("name: x\nunknown: 1\n")},
		"pages/good.page": {Data: []byte("@page good\nnav\n")},
	}, "pages")
	require.NoError(t, err)
	require.Len(t, specs, 1)
	require.Len(t, invalid, 1)
	require.Equal(t, "pages/bad.yaml", invalid[0].Source)
	require.Zero(t, invalid[0].Line)
	require.Contains(t, invalid[0].Error(), "pages/bad.yaml: ")

	_, _, err = LoadPages(fstest.MapFS{}, "pages")
	require.Error(t, err)
}

func TestBuildProjects(t *testing.T) {
	first, err := LoadProject(context.Background(), writeTestProject(t), nil)
	require.NoError(t, err)

	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		ProfileFile:       "brandName: Bistro\nroutes:\n  - path: /\n    label: Home\n",
		"pages/home.page": "@page home\nnav\nhero headline=\"Soup of the day\"\n",
	})
	second, err := LoadProject(context.Background(), dir, nil)
	require.NoError(t, err)

	manifests, err := BuildProjects(context.Background(), []*Project{first, second})
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	require.Equal(t, "acme", manifests[0].Site)
	require.False(t, manifests[0].OK())
	require.Equal(t, "bistro", manifests[1].Site)
	require.True(t, manifests[1].OK())
}
