package sitekit

import (
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/sitekit/views"
)

func (a *App) siteInfo(snap *Snapshot) views.SiteInfo {
	info := views.SiteInfo{Name: "site", BrandName: "sitekit", URL: a.Config.URL}
	if snap != nil {
		p := snap.Project.Profile
		info.Name = p.Name()
		info.BrandName = p.BrandName()
		if p.BaseURL() != "" {
			info.URL = p.BaseURL()
		}
	}
	return info
}

func (a *App) handleAdmin(c echo.Context) error {
	if !IsAdmin(c) {
		snap, _ := a.Cache.Get(c.Request().Context())
		return Render(c, a.Views.AdminLogin(a.siteInfo(snap), false, CsrfToken(c)))
	}
	return a.renderAdminDashboard(c, c.QueryParam("msg"))
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.AdminPassword)) == 1 {
		if err := setAdminSession(c); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.loginLimiter.Record(ip)
	a.Logger.Warn("failed admin login", zap.String("ip", ip))
	snap, _ := a.Cache.Get(c.Request().Context())
	return RenderStatus(c, http.StatusUnauthorized, a.Views.AdminLogin(a.siteInfo(snap), true, CsrfToken(c)))
}

func handleAdminLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminRebuild(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	a.Cache.Invalidate()
	snap, err := a.Cache.Get(c.Request().Context())
	if err != nil {
		a.Logger.Error("rebuild failed", zap.Error(err))
		return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape("Rebuild failed: "+err.Error()))
	}
	r := NewReport(snap.Manifest)
	msg := fmt.Sprintf("Rebuilt: %d accepted, %d rejected.", r.Accepted, r.Rejected)
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}

func (a *App) handleAdminBuild(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	ctx := c.Request().Context()
	r, err := a.Store.GetBuild(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return err
	}
	snap, _ := a.Cache.Get(ctx)
	return Render(c, a.Views.AdminBuild(views.BuildDetail{
		Site: a.siteInfo(snap),
		Build: views.BuildRow{
			ID:        r.BuildID,
			StartedAt: r.StartedAt,
			Accepted:  r.Accepted,
			Rejected:  r.Rejected,
		},
		Pages:     pageRows(r),
		CSRFToken: CsrfToken(c),
	}))
}

func (a *App) handleAdminSubmissions(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	ctx := c.Request().Context()
	snap, err := a.Cache.Get(ctx)
	if err != nil {
		return err
	}
	handler := c.QueryParam("handler")
	subs, err := a.Store.ListSubmissions(ctx, snap.Manifest.Site, handler)
	if err != nil {
		return err
	}
	items := make([]views.SubmissionRow, 0, len(subs))
	for _, s := range subs {
		items = append(items, submissionRow(snap, s))
	}
	return Render(c, a.Views.AdminSubmissions(views.Submissions{
		Site:      a.siteInfo(snap),
		Handler:   handler,
		Items:     items,
		CSRFToken: CsrfToken(c),
	}))
}

func (a *App) handleAdminDeleteSubmission(c echo.Context) error {
	if !IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	if err := a.Store.DeleteSubmission(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/submissions/")
}

func (a *App) renderAdminDashboard(c echo.Context, msg string) error {
	ctx := c.Request().Context()
	d := views.Dashboard{Message: msg, CSRFToken: CsrfToken(c)}

	snap, err := a.Cache.Get(ctx)
	if err != nil {
		d.LoadError = err.Error()
	} else {
		d.BuildID = snap.Manifest.BuildID
		d.LoadedAt = snap.LoadedAt
		d.Pages = pageRows(NewReport(snap.Manifest))
	}
	d.Site = a.siteInfo(snap)

	builds, err := a.Store.ListBuilds(ctx, d.Site.Name, 20)
	if err != nil {
		return err
	}
	for _, b := range builds {
		d.History = append(d.History, views.BuildRow{
			ID:        b.BuildID,
			StartedAt: b.StartedAt,
			Accepted:  b.Accepted,
			Rejected:  b.Rejected,
		})
	}
	return Render(c, a.Views.AdminDashboard(d))
}

func pageRows(r Report) []views.PageRow {
	rows := make([]views.PageRow, 0, len(r.Pages))
	for _, p := range r.Pages {
		row := views.PageRow{
			Page:       p.Page,
			Path:       p.Path,
			Source:     p.Source,
			Status:     string(p.Status),
			Stage:      p.Stage.String(),
			Digest:     p.Digest,
			UsedRoutes: p.UsedRoutes,
		}
		for _, e := range p.Errors {
			row.Errors = append(row.Errors, views.ErrorRow{Kind: e.Kind, Message: e.Message})
		}
		rows = append(rows, row)
	}
	return rows
}

// submissionRow orders fields as the section declares them, falling back to
// name order for sections no longer in the build.
func submissionRow(snap *Snapshot, s Submission) views.SubmissionRow {
	var order []string
	if mod, ok := snap.Manifest.Page(s.Page); ok {
		for _, f := range mod.Forms {
			if f.Section == s.Section && f.Handler == s.Handler {
				order = f.Fields
				break
			}
		}
	}
	if order == nil {
		for k := range s.Fields {
			order = append(order, k)
		}
		slices.Sort(order)
	}
	row := views.SubmissionRow{
		ID:         s.ID,
		Page:       s.Page,
		Section:    s.Section,
		Handler:    s.Handler,
		ReceivedAt: s.ReceivedAt,
	}
	for _, k := range order {
		if v, ok := s.Fields[k]; ok {
			row.Fields = append(row.Fields, [2]string{k, v})
		}
	}
	return row
}
