package sitekit

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemapURLs lists every accepted page, in profile route order first and
// then in page order, each path once.
func sitemapURLs(base string, snap *Snapshot) []sitemapURL {
	lastMod := ""
	if !snap.LoadedAt.IsZero() {
		lastMod = snap.LoadedAt.UTC().Format("2006-01-02")
	}
	seen := map[string]bool{}
	var urls []sitemapURL
	add := func(p string) {
		if seen[p] {
			return
		}
		if _, ok := snap.Manifest.Lookup(p); !ok {
			return
		}
		seen[p] = true
		urls = append(urls, sitemapURL{Loc: BuildURL(base, p), LastMod: lastMod})
	}
	for _, r := range snap.Project.Profile.Routes() {
		add(r.Path)
	}
	for _, p := range snap.Manifest.Accepted() {
		add(p.Path)
	}
	return urls
}

func (a *App) renderSitemap(c echo.Context, snap *Snapshot) error {
	base := snap.Project.Profile.BaseURL()
	if base == "" {
		base = a.Config.URL
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  sitemapURLs(base, snap),
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
