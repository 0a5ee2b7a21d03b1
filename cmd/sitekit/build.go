package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eringen/sitekit"
)

var (
	outDir     string
	workers    int
	recordPath string
	jsonOutput bool
)

var buildCmd = &cobra.Command{
	Use:   "build [dir...]",
	Short: "Build sites and write accepted pages to the output directory",
	Long: `Builds every page of each project directory (default ".") and writes the
accepted pages as <path>/index.html, together with their image assets and a
manifest.json report. With several projects each site goes to <out>/<site>;
site names must be unique.`,
	RunE: runBuild,
}

var checkCmd = &cobra.Command{
	Use:   "check [dir...]",
	Short: "Assemble and validate sites without writing anything",
	RunE:  runCheck,
}

func init() {
	buildCmd.Flags().StringVarP(&outDir, "out", "o", "dist", "output directory")
	buildCmd.Flags().StringVar(&recordPath, "record", "", "record the build in this SQLite database")
	for _, c := range []*cobra.Command{buildCmd, checkCmd} {
		c.Flags().IntVarP(&workers, "workers", "w", 0, "pages assembled concurrently (default GOMAXPROCS)")
		c.Flags().BoolVar(&jsonOutput, "json", false, "print the build reports as JSON")
	}
}

func projectDirs(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	return args
}

// siteBuild is the outcome for one project directory: a built site, or the
// error that kept it from loading.
type siteBuild struct {
	dir      string
	project  *sitekit.Project
	manifest *sitekit.Manifest
	err      error
}

// siteReport is one site's entry in the command output.
type siteReport struct {
	sitekit.Report
	Dir   string `json:"dir"`
	Error string `json:"error,omitempty"`
}

// buildAll loads and builds every project. A project that fails to load
// (profile, sections, or a site name already taken by an earlier project)
// is reported and skipped; the others are still built.
func buildAll(ctx context.Context, dirs []string) ([]siteBuild, error) {
	base, err := sitekit.NewBuiltinLibrary()
	if err != nil {
		return nil, err
	}
	sites := make([]siteBuild, len(dirs))
	seen := map[string]string{}
	var (
		projects []*sitekit.Project
		loaded   []int
	)
	for i, dir := range dirs {
		sites[i].dir = dir
		p, err := sitekit.LoadProject(ctx, dir, base)
		if err == nil {
			name := p.Profile.Name()
			if first, dup := seen[name]; dup {
				err = fmt.Errorf("site name %q already used by %s", name, first)
			} else {
				seen[name] = dir
			}
		}
		if err != nil {
			logger.Error("project not built", zap.String("dir", dir), zap.Error(err))
			sites[i].err = err
			continue
		}
		sites[i].project = p
		projects = append(projects, p)
		loaded = append(loaded, i)
	}
	manifests, err := sitekit.BuildProjects(ctx, projects, sitekit.WithWorkers(workers), sitekit.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	for j, i := range loaded {
		sites[i].manifest = manifests[j]
	}
	return sites, nil
}

func failedReport(s siteBuild) siteReport {
	return siteReport{Dir: s.dir, Error: s.err.Error()}
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sites, err := buildAll(ctx, projectDirs(args))
	if err != nil {
		return err
	}

	var store *sitekit.Store
	if recordPath != "" {
		store, err = sitekit.NewStore(recordPath)
		if err != nil {
			return fmt.Errorf("open %s: %w", recordPath, err)
		}
		defer store.Close()
	}

	reports := make([]siteReport, 0, len(sites))
	for _, s := range sites {
		if s.err != nil {
			reports = append(reports, failedReport(s))
			continue
		}
		m := s.manifest
		dst := outDir
		if len(sites) > 1 {
			dst = filepath.Join(outDir, m.Site)
		}
		assets, err := sitekit.Emit(ctx, dst, s.project, m, logger)
		if err != nil {
			return err
		}
		logger.Info("site written",
			zap.String("site", m.Site),
			zap.String("out", dst),
			zap.Int("pages", len(m.Accepted())),
			zap.Int("assets", len(assets)),
		)
		r := sitekit.NewReport(m)
		if store != nil {
			if err := store.SaveBuild(ctx, r); err != nil {
				return fmt.Errorf("record build: %w", err)
			}
		}
		reports = append(reports, siteReport{Report: r, Dir: s.dir})
	}
	return report(cmd.OutOrStdout(), reports)
}

func runCheck(cmd *cobra.Command, args []string) error {
	sites, err := buildAll(cmd.Context(), projectDirs(args))
	if err != nil {
		return err
	}
	reports := make([]siteReport, 0, len(sites))
	for _, s := range sites {
		if s.err != nil {
			reports = append(reports, failedReport(s))
			continue
		}
		reports = append(reports, siteReport{Report: sitekit.NewReport(s.manifest), Dir: s.dir})
	}
	return report(cmd.OutOrStdout(), reports)
}

// report prints the reports and returns errRejected when any page or site
// was rejected.
func report(w io.Writer, reports []siteReport) error {
	rejected := 0
	for _, r := range reports {
		rejected += r.Rejected
		if r.Error != "" {
			rejected++
		}
	}
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			printReport(w, r)
		}
	}
	if rejected > 0 {
		return errRejected
	}
	return nil
}

func printReport(w io.Writer, r siteReport) {
	if r.Error != "" {
		fmt.Fprintf(w, "%s: not built: %s\n", r.Dir, r.Error)
		return
	}
	fmt.Fprintf(w, "%s: %d accepted, %d rejected\n", r.Site, r.Accepted, r.Rejected)
	for _, p := range r.Pages {
		if p.Status == sitekit.StatusAccepted {
			fmt.Fprintf(w, "  ok    %-20s %s\n", p.Page, p.Path)
			continue
		}
		fmt.Fprintf(w, "  FAIL  %-20s %s (at %s)\n", p.Page, p.Path, p.Stage)
		if p.Source != "" {
			fmt.Fprintf(w, "        in %s\n", p.Source)
		}
		for _, e := range p.Errors {
			fmt.Fprintf(w, "        %s: %s\n", e.Kind, e.Message)
		}
	}
}
