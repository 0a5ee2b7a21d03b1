package sitekit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"
)

// ManifestFile is the name of the build report written next to the emitted
// pages.
const ManifestFile = "manifest.json"

// ErrorReport is one error of a rejected page, as reported to users.
type ErrorReport struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// PageReport is one page's entry in a Report.
type PageReport struct {
	Page       string        `json:"page"`
	Path       string        `json:"path"`
	Source     string        `json:"source,omitempty"`
	Status     Status        `json:"status"`
	Stage      Stage         `json:"stage"`
	Digest     string        `json:"digest,omitempty"`
	UsedRoutes []string      `json:"usedRoutes,omitempty"`
	Errors     []ErrorReport `json:"errors,omitempty"`
}

// Report is the serializable summary of a Manifest: which pages were
// accepted and every error of every rejected page.
type Report struct {
	BuildID   string       `json:"buildId"`
	Site      string       `json:"site"`
	StartedAt time.Time    `json:"startedAt"`
	Accepted  int          `json:"accepted"`
	Rejected  int          `json:"rejected"`
	Pages     []PageReport `json:"pages"`
}

// NewReport summarizes m.
func NewReport(m *Manifest) Report {
	r := Report{
		BuildID:   m.BuildID,
		Site:      m.Site,
		StartedAt: m.StartedAt,
		Pages:     make([]PageReport, 0, len(m.Pages)),
	}
	for _, p := range m.Pages {
		pr := PageReport{
			Page:   p.Page,
			Path:   p.Path,
			Source: p.Source,
			Status: p.Status,
			Stage:  p.Stage,
		}
		if p.Module != nil {
			pr.Digest = p.Module.Digest
			pr.UsedRoutes = p.Module.UsedRoutes
		}
		for _, err := range p.Errors {
			pr.Errors = append(pr.Errors, ErrorReport{Kind: ErrorKind(err), Message: err.Error()})
		}
		if p.Status == StatusAccepted {
			r.Accepted++
		} else {
			r.Rejected++
		}
		r.Pages = append(r.Pages, pr)
	}
	return r
}

// Emit writes every accepted page of m to outDir as <path>/index.html,
// together with the image assets those pages use, the form runtime and a
// manifest.json report. Rejected pages are listed in the report only.
func Emit(ctx context.Context, outDir string, p *Project, m *Manifest, logger *zap.Logger) ([]Asset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("sitekit: emit: %w", err)
	}

	needsForms := false
	assetPaths := map[string]struct{}{}
	for _, page := range m.Accepted() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mod := page.Module
		var buf bytes.Buffer
		if err := Document(p.Profile, mod).Render(ctx, &buf); err != nil {
			return nil, fmt.Errorf("sitekit: render %s: %w", mod.PageName, err)
		}
		dst := filepath.Join(outDir, filepath.FromSlash(OutputPath(mod.Path)))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("sitekit: write %s: %w", dst, err)
		}
		logger.Debug("page written", zap.String("page", mod.PageName), zap.String("file", dst))
		if len(mod.Forms) > 0 {
			needsForms = true
		}
		for _, a := range mod.Assets {
			assetPaths[a] = struct{}{}
		}
	}

	var assets []Asset
	for _, a := range slices.Sorted(maps.Keys(assetPaths)) {
		asset, err := emitAsset(p.Dir, outDir, a)
		if err != nil {
			// A missing image degrades the page but does not reject it.
			logger.Warn("asset skipped", zap.String("asset", a), zap.Error(err))
			continue
		}
		assets = append(assets, asset)
	}

	if needsForms {
		script, err := fs.ReadFile(EmbeddedAssets, "embedded/sitekit-forms.js")
		if err != nil {
			return nil, err
		}
		dst := filepath.Join(outDir, filepath.FromSlash(FormsScript[1:]))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(dst, script, 0o644); err != nil {
			return nil, err
		}
	}

	report, err := json.MarshalIndent(NewReport(m), "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outDir, ManifestFile), append(report, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("sitekit: write manifest: %w", err)
	}
	return assets, nil
}
