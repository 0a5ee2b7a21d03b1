package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// NotFound renders the 404 page.
func NotFound() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.head("Not found")
		w.raw("<main>\n<h1>404</h1>\n<p>This page does not exist, or it was rejected by the last build.</p>\n<p><a href=\"/\">Home</a></p>\n</main>\n")
		w.foot()
		return w.err
	})
}

// ServerError renders the 500 page.
func ServerError() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := &writer{w: out}
		w.head("Server error")
		w.raw("<main>\n<h1>Something went wrong</h1>\n<p>The site could not be built. Check the server log.</p>\n</main>\n")
		w.foot()
		return w.err
	})
}
