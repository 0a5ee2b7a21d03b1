package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/eringen/sitekit"
)

var sectionsVerbose bool

var sectionsCmd = &cobra.Command{
	Use:   "sections [dir]",
	Short: "List the section templates available to a project",
	Long: `Lists the built-in section templates, plus the project's own sections
when a project directory is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSections,
}

func init() {
	sectionsCmd.Flags().BoolVarP(&sectionsVerbose, "verbose", "v", false, "show every parameter")
}

func runSections(cmd *cobra.Command, args []string) error {
	lib, err := sitekit.NewBuiltinLibrary()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := lib.LoadSections(os.DirFS(args[0]), sitekit.SectionsDir); err != nil {
			return fmt.Errorf("%s: %w", filepath.Join(args[0], sitekit.SectionsDir), err)
		}
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tROLE\tHANDLER\tDESCRIPTION")
	for _, name := range lib.Names() {
		t, err := lib.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, dash(string(t.Role)), dash(t.Handler), t.Description)
		if !sectionsVerbose {
			continue
		}
		for _, pname := range slices.Sorted(maps.Keys(t.Parameters)) {
			fmt.Fprintf(tw, "  %s\t\t\t%s\n", pname, describeParam(t.Parameters[pname]))
		}
	}
	return tw.Flush()
}

func describeParam(p sitekit.Param) string {
	var parts []string
	if p.Required {
		parts = append(parts, "required")
	}
	if p.Format != "" && p.Format != sitekit.FormatText {
		parts = append(parts, string(p.Format))
	}
	if p.InheritsGlobal {
		g := "global"
		if p.Global != "" {
			g += " " + p.Global
		}
		parts = append(parts, g)
	}
	if p.IsRoute {
		parts = append(parts, "route")
	}
	if p.Default != nil && *p.Default != "" {
		parts = append(parts, fmt.Sprintf("default %q", *p.Default))
	}
	return strings.Join(parts, ", ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
