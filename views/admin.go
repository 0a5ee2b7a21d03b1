package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Login renders the admin login form.
func Login(site SiteInfo, showError bool, csrfToken string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.head("Sign in | " + site.BrandName)
		w.raw("<main class=\"login\">\n<h1>")
		w.text(site.BrandName)
		w.raw(" admin</h1>\n")
		if showError {
			w.raw("<p class=\"err\" role=\"alert\">Wrong password.</p>\n")
		}
		w.raw("<form method=\"post\" action=\"/admin/login/\">\n")
		w.rawf("<input type=\"hidden\" name=\"_csrf\" value=\"%s\">\n", attr(csrfToken))
		w.raw("<label>Password <input type=\"password\" name=\"password\" autocomplete=\"current-password\" required autofocus></label>\n")
		w.raw("<button type=\"submit\">Sign in</button>\n</form>\n</main>\n")
		w.foot()
		return w.err
	})
}

// DashboardPage renders the current build and the build history.
func DashboardPage(d Dashboard) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.head("Admin | " + d.Site.BrandName)
		w.nav(d.Site, d.CSRFToken)
		w.raw("<main>\n")
		if d.Message != "" {
			w.raw("<p class=\"msg\">")
			w.text(d.Message)
			w.raw("</p>\n")
		}
		if d.LoadError != "" {
			w.raw("<p class=\"err\" role=\"alert\">")
			w.text(d.LoadError)
			w.raw("</p>\n")
		}
		w.raw("<section id=\"current\">\n<h2>Current build</h2>\n")
		if d.BuildID != "" {
			w.raw("<p>Build <code>")
			w.text(ShortID(d.BuildID))
			w.raw("</code> loaded ")
			w.text(FormatTime(d.LoadedAt))
			w.raw("</p>\n")
		}
		w.raw("<form method=\"post\" action=\"/admin/rebuild/\">")
		w.rawf("<input type=\"hidden\" name=\"_csrf\" value=\"%s\">", attr(d.CSRFToken))
		w.raw("<button type=\"submit\">Rebuild</button></form>\n")
		w.pageTable(d.Pages)
		w.raw("</section>\n<section id=\"history\">\n<h2>History</h2>\n")
		if len(d.History) == 0 {
			w.raw("<p>No recorded builds.</p>\n")
		} else {
			w.raw("<table>\n<thead><tr><th>Build</th><th>Started</th><th>Accepted</th><th>Rejected</th></tr></thead>\n<tbody>\n")
			for _, b := range d.History {
				w.rawf("<tr><td><a href=\"/admin/builds/%s/\">", attr(PathEscape(b.ID)))
				w.text(ShortID(b.ID))
				w.raw("</a></td><td>")
				w.text(FormatTime(b.StartedAt))
				w.rawf("</td><td>%d</td><td>%d</td></tr>\n", b.Accepted, b.Rejected)
			}
			w.raw("</tbody>\n</table>\n")
		}
		w.raw("</section>\n</main>\n")
		w.foot()
		return w.err
	})
}

// BuildPage renders one recorded build.
func BuildPage(d BuildDetail) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.head("Build " + ShortID(d.Build.ID) + " | " + d.Site.BrandName)
		w.nav(d.Site, d.CSRFToken)
		w.raw("<main>\n<h2>Build <code>")
		w.text(d.Build.ID)
		w.raw("</code></h2>\n<p>")
		w.text(FormatTime(d.Build.StartedAt))
		w.rawf(": %d accepted, %d rejected</p>\n", d.Build.Accepted, d.Build.Rejected)
		w.pageTable(d.Pages)
		w.raw("</main>\n")
		w.foot()
		return w.err
	})
}

// SubmissionsPage renders the form submission inbox.
func SubmissionsPage(d Submissions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.head("Submissions | " + d.Site.BrandName)
		w.nav(d.Site, d.CSRFToken)
		w.raw("<main>\n<h2>Submissions")
		if d.Handler != "" {
			w.raw(" to <code>")
			w.text(d.Handler)
			w.raw("</code>")
		}
		w.raw("</h2>\n")
		if len(d.Items) == 0 {
			w.raw("<p>No submissions yet.</p>\n")
		}
		for _, s := range d.Items {
			w.rawf("<article class=\"submission\" id=\"s-%s\">\n<h3>", attr(s.ID))
			w.text(s.Handler)
			w.raw(" <small>")
			w.text(s.Page + " / " + s.Section + " / " + FormatTime(s.ReceivedAt))
			w.raw("</small></h3>\n<dl>\n")
			for _, f := range s.Fields {
				w.raw("<dt>")
				w.text(f[0])
				w.raw("</dt><dd>")
				w.text(f[1])
				w.raw("</dd>\n")
			}
			w.raw("</dl>\n")
			w.rawf("<form method=\"post\" action=\"/admin/submissions/%s/delete/\">", attr(PathEscape(s.ID)))
			w.rawf("<input type=\"hidden\" name=\"_csrf\" value=\"%s\">", attr(d.CSRFToken))
			w.raw("<button type=\"submit\">Delete</button></form>\n</article>\n")
		}
		w.raw("</main>\n")
		w.foot()
		return w.err
	})
}
