package sitekit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"path"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Library is a registry of section templates. Templates are registered while
// a site is being loaded; once Freeze is called the library is read-only and
// may be shared by any number of concurrent assemblies.
type Library struct {
	mu       sync.RWMutex
	sections map[string]*compiledSection
	frozen   bool
}

// NewLibrary returns an empty Library.
func NewLibrary() *Library {
	return &Library{sections: map[string]*compiledSection{}}
}

// NewBuiltinLibrary returns an unfrozen Library holding the built-in
// sections (see BuiltinSections).
func NewBuiltinLibrary() (*Library, error) {
	lib := NewLibrary()
	if err := lib.LoadSections(BuiltinSections, "sections"); err != nil {
		return nil, fmt.Errorf("sitekit: builtin sections: %w", err)
	}
	return lib, nil
}

// Register validates t and adds it to the library. It fails with a
// *TemplateError when a placeholder has no declared parameter or the name is
// already taken, and with ErrLibraryFrozen after Freeze.
func (l *Library) Register(t SectionTemplate) error {
	compiled, err := compileSection(t)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frozen {
		return fmt.Errorf("register %q: %w", t.Name, ErrLibraryFrozen)
	}
	if _, exists := l.sections[t.Name]; exists {
		return &TemplateError{Section: t.Name, Reason: "section already registered"}
	}
	l.sections[t.Name] = compiled
	return nil
}

// Replace registers t, overwriting any template with the same name. Project
// templates use it to override built-in sections.
func (l *Library) Replace(t SectionTemplate) error {
	compiled, err := compileSection(t)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.frozen {
		return fmt.Errorf("replace %q: %w", t.Name, ErrLibraryFrozen)
	}
	l.sections[t.Name] = compiled
	return nil
}

// Get returns a copy of the named template, or a *NotFoundError.
func (l *Library) Get(name string) (SectionTemplate, error) {
	c, err := l.lookup(name)
	if err != nil {
		return SectionTemplate{}, err
	}
	return c.SectionTemplate.clone(), nil
}

func (l *Library) lookup(name string) (*compiledSection, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.sections[name]
	if !ok {
		return nil, &NotFoundError{Section: name}
	}
	return c, nil
}

// Names returns the registered section names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Sorted(maps.Keys(l.sections))
}

// Freeze makes the library read-only. It is safe to call more than once.
func (l *Library) Freeze() {
	l.mu.Lock()
	l.frozen = true
	l.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (l *Library) Frozen() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.frozen
}

// Clone returns an unfrozen copy of the library, so a project can add its own
// templates on top of a shared base.
func (l *Library) Clone() *Library {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Library{sections: maps.Clone(l.sections)}
}

// LoadSections registers every *.yaml file in dir of fsys. A file may hold
// several templates as separate YAML documents. Templates whose name is
// already registered replace the existing entry.
func (l *Library) LoadSections(fsys fs.FS, dir string) error {
	files, err := fs.Glob(fsys, path.Join(dir, "*.yaml"))
	if err != nil {
		return err
	}
	slices.Sort(files)
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		templates, err := DecodeSections(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("decode %s: %w", file, err)
		}
		for _, t := range templates {
			if err := l.Replace(t); err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
		}
	}
	return nil
}

// DecodeSections reads a stream of YAML documents, one SectionTemplate each.
func DecodeSections(r io.Reader) ([]SectionTemplate, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var out []SectionTemplate
	for {
		var t SectionTemplate
		err := dec.Decode(&t)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
}
