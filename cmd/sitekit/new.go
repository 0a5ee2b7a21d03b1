package main

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/eringen/sitekit/scaffold"
)

var starter string

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new site project from a starter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNew(cmd, args[0], starter)
	},
}

func init() {
	newCmd.Flags().StringVarP(&starter, "template", "t", "personal",
		"starter project ("+strings.Join(scaffold.Names(), ", ")+")")
}

// scaffoldData holds the template variables passed to every scaffold template.
type scaffoldData struct {
	ProjectName string
	SiteName    string
}

func runNew(cmd *cobra.Command, name, starter string) error {
	if !scaffold.Exists(starter) {
		return fmt.Errorf("unknown template %q (available: %s)", starter, strings.Join(scaffold.Names(), ", "))
	}
	dirName := filepath.Base(name)
	if _, err := os.Stat(name); err == nil {
		return fmt.Errorf("directory %q already exists", name)
	}

	data := scaffoldData{
		ProjectName: dirName,
		SiteName:    toTitle(dirName),
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Creating new sitekit project: %s (%s)\n\n", name, starter)

	root := path.Join("templates", starter)
	err := fs.WalkDir(scaffold.Templates, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		outPath := filepath.Join(name, filepath.FromSlash(strings.TrimSuffix(rel, ".tmpl")))
		if filepath.Base(outPath) == "dotenv" {
			outPath = filepath.Join(filepath.Dir(outPath), ".env.example")
		}
		if d.IsDir() {
			return os.MkdirAll(outPath, 0o755)
		}

		content, err := scaffold.Templates.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		// [[ ]] keeps section placeholders such as {{heading}} intact.
		tmpl, err := template.New(path.Base(p)).Delims("[[", "]]").Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", p, err)
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		if err := tmpl.Execute(f, data); err != nil {
			return fmt.Errorf("execute template %s: %w", p, err)
		}
		fmt.Fprintf(out, "  created %s\n", outPath)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Done! Next steps:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  cd %s\n", name)
	fmt.Fprintln(out, "  sitekit check")
	fmt.Fprintln(out, "  sitekit build --out dist")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Copy .env.example to .env and set SITEKIT_ADMIN_PASSWORD before `sitekit serve --watch`.")
	return nil
}

// toTitle converts a hyphenated or lowercase name to a title-case string.
// e.g. "my-site" -> "My Site", "mysite" -> "Mysite"
func toTitle(s string) string {
	parts := strings.Split(s, "-")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}
