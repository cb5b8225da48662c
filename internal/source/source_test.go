package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

func TestExtractFileID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://drive.google.com/file/d/1X9ze_7q1oVjDia4trRnd9ZZkq5P2ymhY/view", "1X9ze_7q1oVjDia4trRnd9ZZkq5P2ymhY", false},
		{"https://drive.google.com/file/d/abc-DEF_123/view?usp=sharing", "abc-DEF_123", false},
		{"https://drive.google.com/open?id=xyz789", "xyz789", false},
		{"https://drive.google.com/uc?export=download&id=q1", "q1", false},
		{"https://invalid-url.com", "", true},
		{"https://example.com/?id=nope", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ExtractFileID(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ExtractFileID(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractFileID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func newDriveFetcher(t *testing.T, handler http.HandlerFunc) (*DriveFetcher, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	f := NewDriveFetcher("https://drive.google.com/file/d/FILE123/view", dir, 5*time.Second)
	f.DownloadURL = srv.URL + "/uc"
	return f, dir
}

func stagedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDriveFetcher_Fetch(t *testing.T) {
	var gotID, gotExport string
	f, dir := newDriveFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotID = r.URL.Query().Get("id")
		gotExport = r.URL.Query().Get("export")
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("sku (unique id),price cents\nA,1\n"))
	})

	artifact, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotID != "FILE123" || gotExport != "download" {
		t.Errorf("request id=%q export=%q", gotID, gotExport)
	}
	if !artifact.Staged() {
		t.Error("Staged() = false, want true")
	}
	if filepath.Dir(artifact.Path) != dir {
		t.Errorf("artifact in %q, want %q", filepath.Dir(artifact.Path), dir)
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "sku (unique id),price cents\nA,1\n" {
		t.Errorf("artifact content = %q", data)
	}

	if err := artifact.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(artifact.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("artifact still exists after Release: %v", err)
	}
	if err := artifact.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestDriveFetcher_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		max     int64
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			},
		},
		{
			name: "html interstitial",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write([]byte("<html>sign in</html>"))
			},
		},
		{
			name: "too large",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/csv")
				w.Write([]byte("0123456789"))
			},
			max: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, dir := newDriveFetcher(t, tt.handler)
			if tt.max > 0 {
				f.MaxBytes = tt.max
			}

			artifact, err := f.Fetch(context.Background())
			var fetchErr *catalog.FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("Fetch() error = %v, want *catalog.FetchError", err)
			}
			if artifact != nil {
				t.Errorf("Fetch() artifact = %+v, want nil", artifact)
			}
			if left := stagedFiles(t, dir); len(left) != 0 {
				t.Errorf("staging dir not cleaned: %v", left)
			}
		})
	}
}

func TestDriveFetcher_InvalidShareURL(t *testing.T) {
	called := false
	f, _ := newDriveFetcher(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	f.ShareURL = "https://invalid-url.com"

	_, err := f.Fetch(context.Background())
	var fetchErr *catalog.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Fetch() error = %v, want *catalog.FetchError", err)
	}
	if called {
		t.Error("server was contacted for an invalid share URL")
	}
}

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := &FileFetcher{Path: path}
	artifact, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if artifact.Staged() {
		t.Error("Staged() = true, want false")
	}
	if err := artifact.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("local file removed by Release: %v", err)
	}

	missing := &FileFetcher{Path: filepath.Join(t.TempDir(), "absent.csv")}
	if _, err := missing.Fetch(context.Background()); err == nil {
		t.Error("Fetch() of missing file error = nil")
	}
}
