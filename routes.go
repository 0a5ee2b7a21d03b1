package sitekit

// CheckRoutes verifies that every route used by m is declared in profile.
// It returns a *DanglingRouteError listing all offending routes, in sorted
// order, or nil.
func CheckRoutes(profile *SiteProfile, m *PageModule) error {
	var dangling []string
	for _, r := range m.UsedRoutes {
		if !profile.HasRoute(r) {
			dangling = append(dangling, r)
		}
	}
	if len(dangling) == 0 {
		return nil
	}
	return &DanglingRouteError{Page: m.PageName, Routes: dangling}
}
