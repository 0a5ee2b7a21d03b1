package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/eringen/sitekit"
	"github.com/eringen/sitekit/scaffold"
)

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func scaffoldProject(t *testing.T, starter string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "my-site")
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	require.NoError(t, runNew(cmd, dir, starter))
	return dir
}

func TestNewStartersBuildCleanly(t *testing.T) {
	for _, starter := range scaffold.Names() {
		t.Run(starter, func(t *testing.T) {
			dir := scaffoldProject(t, starter)
			require.FileExists(t, filepath.Join(dir, sitekit.ProfileFile))
			require.FileExists(t, filepath.Join(dir, ".env.example"))

			err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
				require.NoError(t, err)
				require.False(t, strings.HasSuffix(p, ".tmpl"), "template suffix left on %s", p)
				return nil
			})
			require.NoError(t, err)

			p, err := sitekit.LoadProject(context.Background(), dir, nil)
			require.NoError(t, err)
			require.Equal(t, "My Site", p.Profile.BrandName())
			m, err := p.Build(context.Background())
			require.NoError(t, err)
			for _, r := range m.Rejected() {
				t.Errorf("page %s rejected at %s: %v", r.Page, r.Stage, r.Errors)
			}
			for _, route := range p.Profile.Routes() {
				_, ok := m.Lookup(route.Path)
				require.True(t, ok, "no page for route %s", route.Path)
			}
		})
	}
}

func TestNewRejects(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	require.ErrorContains(t, runNew(cmd, filepath.Join(t.TempDir(), "x"), "nope"), "unknown template")

	existing := t.TempDir()
	require.ErrorContains(t, runNew(cmd, existing, "personal"), "already exists")
}

func TestToTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"my-site", "My Site"},
		{"mysite", "Mysite"},
		{"a--b", "A  B"},
	}
	for _, tt := range tests {
		if got := toTitle(tt.in); got != tt.want {
			t.Errorf("toTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildCommand(t *testing.T) {
	dir := scaffoldProject(t, "personal")
	out := filepath.Join(t.TempDir(), "dist")
	db := filepath.Join(t.TempDir(), "history.db")

	output, err := execute(t, "build", dir, "--out", out, "--record", db, "--json=false", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, output, "my-site: 3 accepted, 0 rejected")
	require.FileExists(t, filepath.Join(out, "index.html"))
	require.FileExists(t, filepath.Join(out, "about", "index.html"))
	require.FileExists(t, filepath.Join(out, "assets", "portrait.svg"))
	require.FileExists(t, filepath.Join(out, sitekit.ManifestFile))

	store, err := sitekit.NewStore(db)
	require.NoError(t, err)
	defer store.Close()
	builds, err := store.ListBuilds(context.Background(), "my-site", 0)
	require.NoError(t, err)
	require.Len(t, builds, 1)
}

func TestCheckCommandReportsRejections(t *testing.T) {
	dir := scaffoldProject(t, "blog")
	broken := "@page pricing /pricing\nnav\nnav\ncta-banner heading=Plans link=/plans\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "zz-broken.page"), []byte(broken), 0o644))

	output, err := execute(t, "check", dir, "--json", "--log-level", "error")
	require.True(t, errors.Is(err, errRejected))

	var reports []sitekit.Report
	require.NoError(t, json.Unmarshal([]byte(output), &reports))
	require.Len(t, reports, 1)
	require.Equal(t, 1, reports[0].Rejected)
	last := reports[0].Pages[len(reports[0].Pages)-1]
	require.Equal(t, "pricing", last.Page)
	require.Equal(t, sitekit.StageResolving, last.Stage)
	require.Equal(t, "StructureError", last.Errors[0].Kind)
}

func TestSectionsCommand(t *testing.T) {
	output, err := execute(t, "sections", "--verbose", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, output, "navigation")
	require.Contains(t, output, "contact-form")
	require.Contains(t, output, "required")

	dir := scaffoldProject(t, "restaurant")
	output, err = execute(t, "sections", dir, "--verbose=false", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, output, "opening-hours")
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "version")
	require.NoError(t, err)
	require.Equal(t, "sitekit dev\n", output)
}

func TestBuildCommandSkipsFailedSites(t *testing.T) {
	first := scaffoldProject(t, "personal")
	sameName := scaffoldProject(t, "blog")
	noProfile := t.TempDir()
	out := filepath.Join(t.TempDir(), "dist")

	output, err := execute(t, "build", first, sameName, noProfile,
		"--out", out, "--record=", "--json", "--log-level", "error")
	require.True(t, errors.Is(err, errRejected))

	var reports []siteReport
	require.NoError(t, json.Unmarshal([]byte(output), &reports))
	require.Len(t, reports, 3)

	require.Empty(t, reports[0].Error)
	require.Equal(t, "my-site", reports[0].Site)
	require.Equal(t, 3, reports[0].Accepted)
	require.FileExists(t, filepath.Join(out, "my-site", "index.html"))

	require.Equal(t, sameName, reports[1].Dir)
	require.Contains(t, reports[1].Error, `site name "my-site" already used by `+first)
	require.Equal(t, noProfile, reports[2].Dir)
	require.NotEmpty(t, reports[2].Error)
}

func TestCheckCommandReportsUnparsableFiles(t *testing.T) {
	dir := scaffoldProject(t, "personal")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "zz-draft.page"), []byte("@page draft\nhero headline=\"open\n"), 0o644))

	output, err := execute(t, "check", dir, "--json=false", "--log-level", "error")
	require.True(t, errors.Is(err, errRejected))
	require.Contains(t, output, "my-site: 3 accepted, 1 rejected")
	require.Contains(t, output, "FAIL  zz-draft")
	require.Contains(t, output, "ParseError: pages/zz-draft.page:2:")
}
