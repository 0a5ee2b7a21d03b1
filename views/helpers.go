package views

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// PathEscape wraps url.PathEscape for use in view code.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// StatusClass returns the CSS class of a page status badge.
func StatusClass(status string) string {
	if status == "accepted" {
		return "badge badge-ok"
	}
	return "badge badge-fail"
}

// ShortID shortens a ULID for display.
func ShortID(id string) string {
	if len(id) <= 10 {
		return id
	}
	return id[len(id)-10:]
}

// FormatTime formats t for admin tables.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// writer accumulates escaped HTML and remembers the first write error.
type writer struct {
	w   io.Writer
	err error
}

func (w *writer) raw(s string) {
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *writer) text(s string) {
	w.raw(templ.EscapeString(s))
}

func (w *writer) rawf(format string, args ...any) {
	w.raw(fmt.Sprintf(format, args...))
}

// attr escapes s for use inside a double-quoted attribute.
func attr(s string) string {
	return templ.EscapeString(s)
}

func (w *writer) head(title string) {
	w.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	w.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	w.raw("<meta name=\"robots\" content=\"noindex\">\n<title>")
	w.text(title)
	w.raw("</title>\n<style>")
	w.raw(adminCSS)
	w.raw("</style>\n</head>\n<body>\n")
}

func (w *writer) foot() {
	w.raw("</body>\n</html>\n")
}

func (w *writer) nav(site SiteInfo, csrf string) {
	w.raw("<header class=\"bar\"><strong>")
	w.text(site.BrandName)
	w.raw("</strong> <a href=\"/admin/\">Builds</a> <a href=\"/admin/submissions/\">Submissions</a> <a href=\"/\">View site</a>")
	w.rawf("<form method=\"post\" action=\"/admin/logout/\" class=\"inline\"><input type=\"hidden\" name=\"_csrf\" value=\"%s\"><button type=\"submit\">Log out</button></form>", attr(csrf))
	w.raw("</header>\n")
}

func (w *writer) pageTable(pages []PageRow) {
	w.raw("<table class=\"pages\">\n<thead><tr><th>Page</th><th>Path</th><th>Status</th><th>Stage</th><th>Details</th></tr></thead>\n<tbody>\n")
	for _, p := range pages {
		w.rawf("<tr data-page=\"%s\"><td>", attr(p.Page))
		w.text(p.Page)
		if p.Source != "" {
			w.raw(" <small>")
			w.text(p.Source)
			w.raw("</small>")
		}
		w.raw("</td><td>")
		if p.Status == "accepted" {
			w.rawf("<a href=\"%s\">", attr(p.Path))
			w.text(p.Path)
			w.raw("</a>")
		} else {
			w.text(p.Path)
		}
		w.rawf("</td><td><span class=\"%s\">", StatusClass(p.Status))
		w.text(p.Status)
		w.raw("</span></td><td>")
		w.text(p.Stage)
		w.raw("</td><td>")
		if len(p.Errors) > 0 {
			w.raw("<ul class=\"errors\">")
			for _, e := range p.Errors {
				w.rawf("<li data-kind=\"%s\"><code>", attr(e.Kind))
				w.text(e.Kind)
				w.raw("</code> ")
				w.text(e.Message)
				w.raw("</li>")
			}
			w.raw("</ul>")
		} else if len(p.UsedRoutes) > 0 {
			w.raw("links: ")
			w.text(strings.Join(p.UsedRoutes, ", "))
		}
		w.raw("</td></tr>\n")
	}
	w.raw("</tbody>\n</table>\n")
}

const adminCSS = `body{font-family:system-ui,sans-serif;margin:0;color:#1c1917;background:#fafaf9}
.bar{display:flex;gap:1rem;align-items:center;padding:.75rem 1.5rem;background:#1c1917;color:#fff}
.bar a{color:#fff}.inline{display:inline;margin-left:auto}
main{padding:1.5rem;max-width:72rem;margin:0 auto}
table{width:100%;border-collapse:collapse;margin:1rem 0}th,td{text-align:left;padding:.4rem .6rem;border-bottom:1px solid #e7e5e4;vertical-align:top}
.badge{padding:.1rem .5rem;border-radius:.25rem;font-size:.8rem}.badge-ok{background:#dcfce7}.badge-fail{background:#fee2e2}
.errors{margin:0;padding-left:1rem}.msg{padding:.5rem 1rem;background:#e0f2fe}.err{padding:.5rem 1rem;background:#fee2e2}
small{color:#78716c}`
