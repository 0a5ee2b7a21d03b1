package sitekit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"site.yaml", true},
		{"pages/home.yml", true},
		{"pages/menu.page", true},
		{"pages/.home.yaml.swp", false},
		{"pages/home.yaml~", false},
		{"assets/me.jpg", false},
		{"notes.txt", false},
	}
	for _, tt := range tests {
		if got := relevant(tt.name); got != tt.want {
			t.Errorf("relevant(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatcherDebouncesChanges(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := writeTestProject(t)
	changes := make(chan []string, 4)
	w, err := NewWatcher(dir, func(paths []string) { changes <- paths }, nil)
	require.NoError(t, err)
	w.debounce = 30 * time.Millisecond
	require.NoError(t, w.Start(context.Background()))
	defer w.Close()

	page := filepath.Join(dir, "pages", "03-new.page")
	for i := range 3 {
		data := []byte("@page new\nhero headline=v" + string(rune('0'+i)) + "\n")
		require.NoError(t, os.WriteFile(page, data, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pages", "ignored.txt"), []byte("x"), 0o644))

	select {
	case paths := <-changes:
		require.Equal(t, []string{page}, paths)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	select {
	case paths := <-changes:
		t.Fatalf("burst reported twice: %v", paths)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w, err := NewWatcher(t.TempDir(), func([]string) {}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()
	require.NoError(t, w.Close())
}
