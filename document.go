package sitekit

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Document returns a component that renders m as a complete HTML document.
// Each section is wrapped in a container carrying its name; interactive
// sections also carry their form action and handler, which the form runtime
// reads.
func Document(profile *SiteProfile, m *PageModule) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
		b.WriteString("<meta charset=\"utf-8\">\n")
		b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		fmt.Fprintf(&b, "<title>%s | %s</title>\n", templ.EscapeString(m.Title), templ.EscapeString(profile.BrandName()))
		if base := profile.BaseURL(); base != "" {
			fmt.Fprintf(&b, "<link rel=\"canonical\" href=\"%s\">\n", templ.EscapeString(BuildURL(base, m.Path)))
		}
		b.WriteString("<meta name=\"generator\" content=\"sitekit\">\n")
		if len(m.Forms) > 0 {
			fmt.Fprintf(&b, "<script src=\"%s\" defer></script>\n", FormsScript)
		}
		fmt.Fprintf(&b, "</head>\n<body data-page=\"%s\">\n", templ.EscapeString(m.PageName))
		for i, s := range m.Sections {
			fmt.Fprintf(&b, "<div class=\"sk-section\" data-section=\"%s\"", templ.EscapeString(s.Name))
			if f, ok := m.Form(i); ok {
				fmt.Fprintf(&b, " data-form-action=\"%s\" data-form-handler=\"%s\"", templ.EscapeString(f.Action), templ.EscapeString(f.Handler))
			}
			b.WriteString(">\n")
			b.WriteString(s.HTML)
			b.WriteString("</div>\n")
		}
		b.WriteString("</body>\n</html>\n")
		_, err := io.WriteString(w, b.String())
		return err
	})
}
