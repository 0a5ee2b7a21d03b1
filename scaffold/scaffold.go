// Package scaffold provides the embedded starter projects used by
// `sitekit new`.
package scaffold

import (
	"embed"
	"io/fs"
	"slices"
)

// Templates contains all scaffold template files, one directory per starter.
// Files use Go text/template syntax with [[ ]] delimiters, so section
// placeholders like {{name}} pass through untouched, and have a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS

// Names returns the available starter names, sorted.
func Names() []string {
	entries, _ := fs.ReadDir(Templates, "templates")
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

// Exists reports whether name is an available starter.
func Exists(name string) bool {
	return slices.Contains(Names(), name)
}
