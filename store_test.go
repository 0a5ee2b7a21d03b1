package sitekit

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(id, site string, started time.Time) Report {
	return Report{
		BuildID:   id,
		Site:      site,
		StartedAt: started,
		Accepted:  1,
		Rejected:  1,
		Pages: []PageReport{
			{Page: "home", Path: "/", Status: StatusAccepted, Stage: StageAccepted, Digest: "abc", UsedRoutes: []string{"/"}},
			{Page: "broken", Path: "/broken", Status: StatusRejected, Stage: StageSubstituted, Errors: []ErrorReport{
				{Kind: "MissingParameterError", Message: `page "broken" section "hero": missing required parameter "headline"`},
			}},
		},
	}
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
	// Schema creation is idempotent.
	if err := s.ensureSchema(); err != nil {
		t.Fatalf("ensureSchema again: %v", err)
	}
}

func TestSaveAndGetBuild(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	started := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	if err := s.SaveBuild(ctx, testReport("b1", "acme", started)); err != nil {
		t.Fatalf("SaveBuild failed: %v", err)
	}

	got, err := s.GetBuild(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBuild failed: %v", err)
	}
	if got.Site != "acme" {
		t.Errorf("Site = %q, want %q", got.Site, "acme")
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.Accepted != 1 || got.Rejected != 1 {
		t.Errorf("Accepted/Rejected = %d/%d, want 1/1", got.Accepted, got.Rejected)
	}
	if len(got.Pages) != 2 {
		t.Fatalf("Pages count = %d, want 2", len(got.Pages))
	}
	if got.Pages[1].Stage != StageSubstituted {
		t.Errorf("Stage = %v, want %v", got.Pages[1].Stage, StageSubstituted)
	}
	if got.Pages[1].Errors[0].Kind != "MissingParameterError" {
		t.Errorf("error kind = %q", got.Pages[1].Errors[0].Kind)
	}
}

func TestSaveBuildDuplicate(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	r := testReport("b1", "acme", time.Now())
	if err := s.SaveBuild(ctx, r); err != nil {
		t.Fatalf("SaveBuild failed: %v", err)
	}
	if err := s.SaveBuild(ctx, r); err == nil {
		t.Fatal("expected an error saving the same build twice")
	}
	got, err := s.GetBuild(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBuild failed: %v", err)
	}
	if len(got.Pages) != 2 {
		t.Errorf("failed save left %d pages, want 2", len(got.Pages))
	}
}

func TestGetBuildNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetBuild(context.Background(), "nonexistent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListAndPruneBuilds(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"b1", "b2", "b3", "b4"} {
		if err := s.SaveBuild(ctx, testReport(id, "acme", base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("SaveBuild %s: %v", id, err)
		}
	}
	if err := s.SaveBuild(ctx, testReport("other", "bistro", base)); err != nil {
		t.Fatalf("SaveBuild other: %v", err)
	}

	got, err := s.ListBuilds(ctx, "acme", 0)
	if err != nil {
		t.Fatalf("ListBuilds failed: %v", err)
	}
	if len(got) != 4 || got[0].BuildID != "b4" || got[3].BuildID != "b1" {
		t.Errorf("ListBuilds order = %v", got)
	}

	all, err := s.ListBuilds(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListBuilds all failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("ListBuilds all = %d, want 5", len(all))
	}

	n, err := s.PruneBuilds(ctx, "acme", 2)
	if err != nil {
		t.Fatalf("PruneBuilds failed: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d builds, want 2", n)
	}
	if _, err := s.GetBuild(ctx, "b1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("b1 should be pruned, got %v", err)
	}
	if _, err := s.GetBuild(ctx, "other"); err != nil {
		t.Errorf("other site's build should survive: %v", err)
	}

	var pages int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM build_pages WHERE build_id = 'b1'`).Scan(&pages); err != nil {
		t.Fatalf("count pages: %v", err)
	}
	if pages != 0 {
		t.Errorf("pruned build kept %d page rows", pages)
	}
}

func TestSubmissions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	subs := []Submission{
		{ID: "s1", Site: "acme", Page: "contact", Section: "contact-form", Handler: "contact", Fields: map[string]string{"email": "a@b.c"}, ReceivedAt: base},
		{ID: "s2", Site: "acme", Page: "home", Section: "newsletter-signup", Handler: "newsletter", Fields: map[string]string{"email": "d@e.f"}, ReceivedAt: base.Add(time.Minute)},
		{ID: "s3", Site: "bistro", Page: "contact", Section: "contact-form", Handler: "contact", Fields: map[string]string{"email": "g@h.i"}, ReceivedAt: base},
	}
	for _, sub := range subs {
		if err := s.SaveSubmission(ctx, sub); err != nil {
			t.Fatalf("SaveSubmission %s: %v", sub.ID, err)
		}
	}

	got, err := s.ListSubmissions(ctx, "acme", "")
	if err != nil {
		t.Fatalf("ListSubmissions failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "s2" {
		t.Fatalf("ListSubmissions = %v, want s2 first of 2", got)
	}
	if got[1].Fields["email"] != "a@b.c" {
		t.Errorf("Fields = %v", got[1].Fields)
	}

	contact, err := s.ListSubmissions(ctx, "acme", "contact")
	if err != nil {
		t.Fatalf("ListSubmissions contact failed: %v", err)
	}
	if len(contact) != 1 || contact[0].ID != "s1" {
		t.Errorf("ListSubmissions contact = %v", contact)
	}

	if err := s.DeleteSubmission(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSubmission failed: %v", err)
	}
	contact, _ = s.ListSubmissions(ctx, "acme", "contact")
	if len(contact) != 0 {
		t.Errorf("submission not deleted: %v", contact)
	}
}
