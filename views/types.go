package views

import "time"

// SiteInfo holds the site-wide values every admin page shows.
type SiteInfo struct {
	Name      string
	BrandName string
	URL       string
}

// PageRow is one page of a build, as listed on the dashboard.
type PageRow struct {
	Page       string
	Path       string
	Source     string
	Status     string // "accepted" or "rejected"
	Stage      string
	Digest     string
	UsedRoutes []string
	Errors     []ErrorRow
}

// ErrorRow is one error of a rejected page.
type ErrorRow struct {
	Kind    string
	Message string
}

// BuildRow is one entry of the build history.
type BuildRow struct {
	ID        string
	StartedAt time.Time
	Accepted  int
	Rejected  int
}

// SubmissionRow is one received form submission.
type SubmissionRow struct {
	ID         string
	Page       string
	Section    string
	Handler    string
	Fields     [][2]string // ordered name/value pairs
	ReceivedAt time.Time
}

// Dashboard is everything the admin dashboard renders.
type Dashboard struct {
	Site      SiteInfo
	BuildID   string
	LoadedAt  time.Time
	Pages     []PageRow
	History   []BuildRow
	Message   string
	LoadError string
	CSRFToken string
}

// BuildDetail is one recorded build.
type BuildDetail struct {
	Site      SiteInfo
	Build     BuildRow
	Pages     []PageRow
	CSRFToken string
}

// Submissions is the submission inbox.
type Submissions struct {
	Site      SiteInfo
	Handler   string
	Items     []SubmissionRow
	CSRFToken string
}
