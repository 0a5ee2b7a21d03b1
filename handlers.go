package sitekit

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (a *App) handlePage(c echo.Context) error {
	snap, mod, err := a.Cache.Lookup(c.Request().Context(), c.Request().URL.Path)
	if err != nil {
		return err
	}
	if mod == nil {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
	}
	c.Response().Header().Set("ETag", `"`+mod.Digest[:16]+`"`)
	if match := c.Request().Header.Get("If-None-Match"); match == `"`+mod.Digest[:16]+`"` {
		return c.NoContent(http.StatusNotModified)
	}
	return Render(c, a.Views.Page(snap.Project.Profile, mod))
}

func (a *App) handleFormSubmit(c echo.Context) error {
	if !a.submitLimiter.Allow(c.RealIP()) {
		return a.submitReply(c, http.StatusTooManyRequests, "", SubmitResult{
			Message: "Too many submissions. Try again later.",
			Status:  SubmitError,
		})
	}

	page, err := url.PathUnescape(c.Param("page"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest)
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest)
	}

	ctx := c.Request().Context()
	snap, err := a.Cache.Get(ctx)
	if err != nil {
		return err
	}
	mod, ok := snap.Manifest.Page(page)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	binding, ok := mod.Form(index)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	posted, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest)
	}
	sub, err := NewSubmission(snap.Manifest.Site, page, binding, posted)
	if err != nil {
		var fe *FieldError
		if !errors.As(err, &fe) {
			return err
		}
		if errors.Is(err, ErrUnknownField) {
			return a.submitReply(c, http.StatusBadRequest, mod.Path, SubmitResult{Message: "The form sent an unexpected field.", Status: SubmitError})
		}
		return a.submitReply(c, http.StatusUnprocessableEntity, mod.Path, SubmitResult{Message: fmt.Sprintf("Please fill in %s.", fe.Field), Status: SubmitError})
	}

	log := a.Logger.With(zap.String("page", page), zap.String("handler", binding.Handler), zap.String("submission", sub.ID))
	result, err := a.handler(binding.Handler)(ctx, sub)
	if err != nil {
		log.Error("form handler failed", zap.Error(err))
		return a.submitReply(c, http.StatusBadGateway, mod.Path, SubmitResult{Message: "Sorry, your submission could not be delivered.", Status: SubmitError})
	}
	log.Info("form submitted")
	return a.submitReply(c, http.StatusOK, mod.Path, result)
}

// submitReply answers the form runtime with JSON, and plain browser posts
// with a redirect back to the page.
func (a *App) submitReply(c echo.Context, code int, pagePath string, result SubmitResult) error {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	if pagePath == "" || strings.Contains(accept, echo.MIMEApplicationJSON) {
		return c.JSON(code, result)
	}
	q := url.Values{"status": {result.Status}, "message": {result.Message}}
	return c.Redirect(http.StatusSeeOther, pagePath+"?"+q.Encode())
}

func (a *App) handleSitemap(c echo.Context) error {
	snap, err := a.Cache.Get(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, snap)
}

func (a *App) handleRobots(c echo.Context) error {
	base := a.Config.URL
	if snap, err := a.Cache.Get(c.Request().Context()); err == nil && snap.Project.Profile.BaseURL() != "" {
		base = snap.Project.Profile.BaseURL()
	}
	body := "User-agent: *\nDisallow: /admin/\nDisallow: /forms/\nSitemap: " + strings.TrimRight(base, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error("server error", zap.Error(err), zap.String("uri", c.Request().RequestURI))
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
