package sitekit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Project file layout, relative to the project directory.
const (
	ProfileFile = "site.yaml"
	SectionsDir = "sections"
	PagesDir    = "pages"
	AssetsDir   = "assets"
)

// Project is one site on disk: its profile, its section library (built-in
// sections plus project overrides) and its page specifications. Invalid
// holds the page files that could not be parsed; each is reported as a
// rejected entry when the project is built.
type Project struct {
	Dir     string
	Profile *SiteProfile
	Library *Library
	Pages   []PageSpec
	Invalid []*ParseError
}

// LoadProject reads the project in dir. base supplies the starting library
// and is cloned, never modified; nil means the built-in sections.
//
// Page files are read in file-name order: *.yaml files hold one page per
// YAML document, *.page files use the compact syntax.
func LoadProject(ctx context.Context, dir string, base *Library) (*Project, error) {
	if base == nil {
		var err error
		base, err = NewBuiltinLibrary()
		if err != nil {
			return nil, err
		}
	}
	profile, err := FileProfile{Path: filepath.Join(dir, ProfileFile)}.LoadProfile(ctx)
	if err != nil {
		return nil, err
	}

	fsys := os.DirFS(dir)
	lib := base.Clone()
	if err := lib.LoadSections(fsys, SectionsDir); err != nil {
		return nil, fmt.Errorf("sitekit: load sections: %w", err)
	}
	pages, invalid, err := LoadPages(fsys, PagesDir)
	if err != nil {
		return nil, fmt.Errorf("sitekit: load pages: %w", err)
	}
	return &Project{Dir: dir, Profile: profile, Library: lib, Pages: pages, Invalid: invalid}, nil
}

// LoadPages reads every page file in dir of fsys. A file that does not parse
// contributes no pages and is returned in invalid instead; the other files
// are unaffected. err is reserved for failures to read the directory or a
// file.
func LoadPages(fsys fs.FS, dir string) (pages []PageSpec, invalid []*ParseError, err error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	for _, name := range names {
		var decode func([]byte, string) ([]PageSpec, error)
		switch strings.ToLower(path.Ext(name)) {
		case ".yaml", ".yml":
			decode = func(b []byte, src string) ([]PageSpec, error) { return DecodePages(bytes.NewReader(b), src) }
		case ".page":
			decode = func(b []byte, src string) ([]PageSpec, error) { return ParseCompact(bytes.NewReader(b), src) }
		default:
			continue
		}
		file := path.Join(dir, name)
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, nil, err
		}
		specs, err := decode(data, file)
		if err != nil {
			var pe *ParseError
			if !errors.As(err, &pe) {
				pe = &ParseError{Source: file, Reason: err.Error()}
			}
			invalid = append(invalid, pe)
			continue
		}
		pages = append(pages, specs...)
	}
	return pages, invalid, nil
}

// Build builds every page of the project. Page files that failed to parse
// are listed after the pages as rejected at StageSpecified.
func (p *Project) Build(ctx context.Context, opts ...BuildOption) (*Manifest, error) {
	if len(p.Invalid) > 0 {
		opts = append(slices.Clip(opts), withInvalidFiles(p.Invalid))
	}
	return Build(ctx, p.Library, p.Profile, p.Pages, opts...)
}

// BuildProjects builds several sites concurrently. Sites share nothing, so
// rejected pages in one site never affect another. Manifests are returned in
// the order of projects.
func BuildProjects(ctx context.Context, projects []*Project, opts ...BuildOption) ([]*Manifest, error) {
	manifests := make([]*Manifest, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range projects {
		g.Go(func() error {
			m, err := p.Build(gctx, opts...)
			if err != nil {
				return fmt.Errorf("sitekit: build %s: %w", p.Dir, err)
			}
			manifests[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return manifests, nil
}
