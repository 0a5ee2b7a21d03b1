package sitekit

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("github.com/eringen/sitekit")

// Stage is a step of one page's build:
// Specified → Resolving → Substituted → Validated → Accepted.
type Stage int

const (
	StageSpecified Stage = iota
	StageResolving
	StageSubstituted
	StageValidated
	StageAccepted
)

func (s Stage) String() string {
	switch s {
	case StageSpecified:
		return "specified"
	case StageResolving:
		return "resolving"
	case StageSubstituted:
		return "substituted"
	case StageValidated:
		return "validated"
	case StageAccepted:
		return "accepted"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name written by MarshalText.
func (s *Stage) UnmarshalText(text []byte) error {
	for st := StageSpecified; st <= StageAccepted; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", text)
}

// Status is the final outcome of a page build.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// PageResult is one page's entry in a build manifest. For a rejected page,
// Stage is the stage that failed and Errors holds every error collected
// there.
type PageResult struct {
	Page   string
	Path   string
	Source string
	Status Status
	Stage  Stage
	Module *PageModule
	Errors []error
}

// Manifest reports the outcome of building every page of one site.
type Manifest struct {
	BuildID   string
	Site      string
	StartedAt time.Time
	Duration  time.Duration
	Pages     []PageResult
}

// Accepted returns the accepted pages in input order.
func (m *Manifest) Accepted() []PageResult {
	return m.filter(StatusAccepted)
}

// Rejected returns the rejected pages in input order.
func (m *Manifest) Rejected() []PageResult {
	return m.filter(StatusRejected)
}

func (m *Manifest) filter(status Status) []PageResult {
	var out []PageResult
	for _, p := range m.Pages {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// Lookup returns the accepted module served at path.
func (m *Manifest) Lookup(path string) (*PageModule, bool) {
	n, ok := normalizeRoute(path)
	if !ok {
		return nil, false
	}
	for _, p := range m.Pages {
		if p.Status == StatusAccepted && p.Module.Path == n {
			return p.Module, true
		}
	}
	return nil, false
}

// Page returns the accepted module with the given page name.
func (m *Manifest) Page(name string) (*PageModule, bool) {
	for _, p := range m.Pages {
		if p.Status == StatusAccepted && p.Page == name {
			return p.Module, true
		}
	}
	return nil, false
}

// OK reports whether every page was accepted.
func (m *Manifest) OK() bool {
	return len(m.Rejected()) == 0
}

type buildOptions struct {
	workers int
	logger  *zap.Logger
	invalid []*ParseError
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithWorkers bounds the number of pages assembled concurrently. Values
// below one mean GOMAXPROCS.
func WithWorkers(n int) BuildOption {
	return func(o *buildOptions) {
		o.workers = n
	}
}

// WithLogger sets the logger build events are written to.
func WithLogger(l *zap.Logger) BuildOption {
	return func(o *buildOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// withInvalidFiles reports page files that never produced a spec.
func withInvalidFiles(errs []*ParseError) BuildOption {
	return func(o *buildOptions) {
		o.invalid = append(o.invalid, errs...)
	}
}

func newBuildOptions(opts []BuildOption) buildOptions {
	o := buildOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Build assembles and validates every page of a site. The library is frozen
// first; pages are processed in parallel and independently, so one page's
// failure never affects another. The manifest lists pages in input order.
//
// Pages that have not started when ctx is cancelled are rejected with the
// context error.
func Build(ctx context.Context, lib *Library, profile *SiteProfile, specs []PageSpec, opts ...BuildOption) (*Manifest, error) {
	if lib == nil || profile == nil {
		return nil, errors.New("sitekit: build needs a library and a profile")
	}
	o := newBuildOptions(opts)
	lib.Freeze()

	m := &Manifest{
		BuildID:   ulid.Make().String(),
		Site:      profile.Name(),
		StartedAt: time.Now().UTC(),
		Pages:     make([]PageResult, len(specs)),
	}
	log := o.logger.With(zap.String("site", m.Site), zap.String("build", m.BuildID))

	ctx, span := tracer.Start(ctx, "sitekit.Build", trace.WithAttributes(
		attribute.String("site", m.Site),
		attribute.Int("pages", len(specs)),
	))
	defer span.End()

	specErrs := checkSpecs(specs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, spec := range specs {
		if err := specErrs[i]; err != nil {
			m.Pages[i] = rejected(spec, StageSpecified, []error{err})
			continue
		}
		if err := gctx.Err(); err != nil {
			m.Pages[i] = rejected(spec, StageSpecified, []error{err})
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				m.Pages[i] = rejected(spec, StageSpecified, []error{err})
				return nil
			}
			m.Pages[i] = buildPage(gctx, lib, profile, spec)
			return nil
		})
	}
	_ = g.Wait()
	for _, pe := range o.invalid {
		m.Pages = append(m.Pages, invalidFile(pe))
	}
	m.Duration = time.Since(m.StartedAt)

	accepted := 0
	for _, r := range m.Pages {
		if r.Status == StatusAccepted {
			accepted++
			log.Debug("page accepted", zap.String("page", r.Page), zap.String("path", r.Path))
			continue
		}
		log.Warn("page rejected",
			zap.String("page", r.Page),
			zap.Stringer("stage", r.Stage),
			zap.Errors("errors", r.Errors),
		)
	}
	span.SetAttributes(attribute.Int("accepted", accepted))
	if len(o.invalid) > 0 {
		span.SetAttributes(attribute.Int("invalid_files", len(o.invalid)))
	}
	if accepted < len(m.Pages) {
		span.SetStatus(codes.Error, fmt.Sprintf("%d pages rejected", len(m.Pages)-accepted))
	}
	log.Info("build finished",
		zap.Int("accepted", accepted),
		zap.Int("rejected", len(m.Pages)-accepted),
		zap.Duration("took", m.Duration),
	)
	return m, nil
}

func buildPage(ctx context.Context, lib *Library, profile *SiteProfile, spec PageSpec) PageResult {
	_, span := tracer.Start(ctx, "sitekit.page", trace.WithAttributes(attribute.String("page", spec.Name)))
	defer span.End()

	mod, err := Assemble(lib, profile, spec)
	if err != nil {
		span.RecordError(err)
		var pe *PageError
		if errors.As(err, &pe) {
			return rejected(spec, pe.Stage, pe.Errs)
		}
		return rejected(spec, StageResolving, []error{err})
	}
	if err := CheckRoutes(profile, mod); err != nil {
		span.RecordError(err)
		return rejected(spec, StageValidated, []error{err})
	}
	return PageResult{
		Page:   spec.Name,
		Path:   mod.Path,
		Source: spec.Source,
		Status: StatusAccepted,
		Stage:  StageAccepted,
		Module: mod,
	}
}

func rejected(spec PageSpec, stage Stage, errs []error) PageResult {
	return PageResult{
		Page:   spec.Name,
		Path:   spec.RoutePath(),
		Source: spec.Source,
		Status: StatusRejected,
		Stage:  stage,
		Errors: errs,
	}
}

// invalidFile is the manifest entry of a page file that did not parse. The
// file name stands in for the page name.
func invalidFile(pe *ParseError) PageResult {
	base := path.Base(pe.Source)
	return PageResult{
		Page:   strings.TrimSuffix(base, path.Ext(base)),
		Source: pe.Source,
		Status: StatusRejected,
		Stage:  StageSpecified,
		Errors: []error{pe},
	}
}

// checkSpecs rejects every page whose path is not a site path, and every
// page whose name or path repeats an earlier page of the same site. The
// first occurrence wins.
func checkSpecs(specs []PageSpec) []error {
	errs := make([]error, len(specs))
	names := map[string]int{}
	paths := map[string]int{}
	for i, spec := range specs {
		if spec.Path != "" {
			if _, ok := normalizeRoute(spec.Path); !ok {
				errs[i] = &StructureError{Page: spec.Name, Reason: fmt.Sprintf("path %q must start with a single /", spec.Path)}
				continue
			}
		}
		if j, dup := names[spec.Name]; dup && spec.Name != "" {
			errs[i] = &StructureError{Page: spec.Name, Reason: fmt.Sprintf("page name already used by page %d", j)}
			continue
		}
		route := spec.RoutePath()
		if j, dup := paths[route]; dup {
			errs[i] = &StructureError{Page: spec.Name, Reason: fmt.Sprintf("path %q already used by page %q", route, specs[j].Name)}
			continue
		}
		names[spec.Name] = i
		paths[route] = i
	}
	return errs
}
