package sitekit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Assemble resolves spec against lib and profile and returns the composed
// page module. It is a pure function of its inputs: the same library,
// profile and spec always yield an identical module.
//
// On failure the error is a *PageError holding every problem found at the
// stage that failed; no partial module is returned.
func Assemble(lib *Library, profile *SiteProfile, spec PageSpec) (*PageModule, error) {
	if lib == nil || profile == nil {
		return nil, errors.New("sitekit: assemble needs a library and a profile")
	}

	sections, errs := resolveSections(lib, spec)
	if len(errs) > 0 {
		return nil, pageError(spec.Name, StageResolving, errs)
	}
	if err := checkStructure(spec, sections); err != nil {
		return nil, pageError(spec.Name, StageResolving, []error{err})
	}

	mod := &PageModule{
		PageName: spec.Name,
		Path:     spec.RoutePath(),
		Title:    spec.DocumentTitle(),
		Sections: make([]RenderedSection, 0, len(sections)),
	}
	routes := map[string]struct{}{}
	assets := map[string]struct{}{}
	for i, c := range sections {
		rendered, sectionErrs := renderSection(c, profile, spec, spec.Sections[i].Overrides, routes, assets)
		if len(sectionErrs) > 0 {
			errs = append(errs, sectionErrs...)
			continue
		}
		mod.Sections = append(mod.Sections, RenderedSection{Name: c.Name, Role: c.Role, HTML: rendered})
		if c.Handler != "" {
			mod.Forms = append(mod.Forms, FormBinding{
				Section: c.Name,
				Index:   i,
				Handler: c.Handler,
				Fields:  slices.Clone(c.Fields),
				Action:  FormAction(spec.Name, i),
			})
		}
	}
	if len(errs) > 0 {
		return nil, pageError(spec.Name, StageSubstituted, errs)
	}

	mod.UsedRoutes = slices.Sorted(maps.Keys(routes))
	if mod.UsedRoutes == nil {
		mod.UsedRoutes = []string{}
	}
	mod.Assets = slices.Sorted(maps.Keys(assets))
	mod.Digest = digest(mod)
	return mod, nil
}

func resolveSections(lib *Library, spec PageSpec) ([]*compiledSection, []error) {
	var errs []error
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, &StructureError{Page: spec.Name, Reason: "page has no name"})
	}
	if len(spec.Sections) == 0 {
		errs = append(errs, &StructureError{Page: spec.Name, Reason: "page has no sections"})
	}
	sections := make([]*compiledSection, len(spec.Sections))
	for i, ref := range spec.Sections {
		c, err := lib.lookup(ref.SectionName)
		if err != nil {
			errs = append(errs, &NotFoundError{Page: spec.Name, Section: ref.SectionName})
			continue
		}
		sections[i] = c
	}
	return sections, errs
}

// checkStructure enforces the navigation rule: at most one navigation
// section, and it comes first.
func checkStructure(spec PageSpec, sections []*compiledSection) error {
	var navAt []int
	for i, c := range sections {
		if c.Role == RoleNavigation {
			navAt = append(navAt, i)
		}
	}
	switch {
	case len(navAt) > 1:
		return &StructureError{
			Page:   spec.Name,
			Reason: fmt.Sprintf("%d navigation sections at positions %v, at most one is allowed", len(navAt), navAt),
		}
	case len(navAt) == 1 && navAt[0] != 0:
		return &StructureError{
			Page:   spec.Name,
			Reason: fmt.Sprintf("navigation section %q at position %d must be first", sections[navAt[0]].Name, navAt[0]),
		}
	}
	return nil
}

// resolveParams overlays template defaults, profile globals and overrides,
// lowest precedence first. Every parameter of the template appears in the
// result; optional parameters with no value resolve to "".
func resolveParams(c *compiledSection, profile *SiteProfile, page string, overrides map[string]string) (map[string]string, []error) {
	var errs []error
	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		if _, declared := c.Parameters[key]; !declared {
			errs = append(errs, &TemplateError{Page: page, Section: c.Name, Placeholder: key, Reason: "override for undeclared parameter"})
		}
	}
	values := make(map[string]string, len(c.params))
	for _, name := range c.params {
		p := c.Parameters[name]
		var value string
		set := false
		if p.Default != nil {
			value, set = *p.Default, true
		}
		if p.InheritsGlobal {
			if g, ok := profile.Global(p.globalKey(name)); ok {
				value, set = g, true
			}
		}
		if o, ok := overrides[name]; ok {
			value, set = o, true
		}
		if !set && p.Required {
			errs = append(errs, &MissingParameterError{Page: page, Section: c.Name, Parameter: name})
			continue
		}
		values[name] = value
	}
	return values, errs
}

func renderSection(c *compiledSection, profile *SiteProfile, spec PageSpec, overrides map[string]string, routes, assets map[string]struct{}) (string, []error) {
	values, errs := resolveParams(c, profile, spec.Name, overrides)
	if len(errs) > 0 {
		return "", errs
	}

	formatted := make(map[string]string, len(values))
	sectionRoutes := map[string]struct{}{}
	sectionAssets := map[string]struct{}{}
	for _, name := range c.params {
		p := c.Parameters[name]
		out, err := formatValue(p.format(), values[name])
		if err != nil {
			errs = append(errs, &TemplateError{Page: spec.Name, Section: c.Name, Placeholder: name, Reason: err.Error()})
			continue
		}
		formatted[name] = out
		if p.IsRoute {
			for _, r := range routeTargets(p.format(), values[name], out) {
				sectionRoutes[r] = struct{}{}
			}
		}
		if p.format() == FormatImage && isLocalAsset(values[name]) {
			sectionAssets[values[name]] = struct{}{}
		}
	}
	if len(errs) > 0 {
		return "", errs
	}

	var b strings.Builder
	for _, seg := range c.segments {
		if seg.param == "" {
			b.WriteString(seg.literal)
			continue
		}
		b.WriteString(formatted[seg.param])
	}
	rendered := b.String()

	if leaked := tokenPattern.FindAllString(rendered, -1); len(leaked) > 0 {
		for _, token := range leaked {
			errs = append(errs, &TemplateError{Page: spec.Name, Section: c.Name, Placeholder: token, Reason: "unresolved placeholder in output"})
		}
		return "", errs
	}

	maps.Copy(routes, sectionRoutes)
	maps.Copy(assets, sectionAssets)
	return rendered, nil
}

func isLocalAsset(v string) bool {
	v = strings.TrimSpace(v)
	return strings.HasPrefix(v, "/") && !strings.HasPrefix(v, "//")
}

func digest(m *PageModule) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00", m.PageName, m.Path, m.Title)
	for _, s := range m.Sections {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00", s.Name, s.Role, s.HTML)
	}
	return hex.EncodeToString(h.Sum(nil))
}
