package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// DefaultDownloadURL is Google Drive's direct download endpoint.
const DefaultDownloadURL = "https://drive.google.com/uc"

// DefaultMaxBytes caps a download at 100MB.
const DefaultMaxBytes int64 = 100 * 1024 * 1024

var fileIDPattern = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)

// ErrFileTooLarge is returned when a download exceeds the size cap.
var ErrFileTooLarge = errors.New("file too large")

// ExtractFileID returns the Drive file id in a share link. Both the
// ".../file/d/<id>/view" and the "...?id=<id>" forms are accepted.
func ExtractFileID(shareURL string) (string, error) {
	if m := fileIDPattern.FindStringSubmatch(shareURL); m != nil {
		return m[1], nil
	}
	u, err := url.Parse(shareURL)
	if err == nil && strings.HasSuffix(u.Hostname(), "google.com") {
		if id := u.Query().Get("id"); id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("unable to extract file id from %q", shareURL)
}

// DriveFetcher downloads a publicly shared Drive file into StagingDir.
type DriveFetcher struct {
	ShareURL    string
	StagingDir  string
	DownloadURL string
	MaxBytes    int64
	Client      *http.Client
}

// NewDriveFetcher returns a fetcher for shareURL with the given request timeout.
// An empty stagingDir uses the system temp directory.
func NewDriveFetcher(shareURL, stagingDir string, timeout time.Duration) *DriveFetcher {
	return &DriveFetcher{
		ShareURL:    shareURL,
		StagingDir:  stagingDir,
		DownloadURL: DefaultDownloadURL,
		MaxBytes:    DefaultMaxBytes,
		Client:      &http.Client{Timeout: timeout},
	}
}

// Locator returns the share link.
func (f *DriveFetcher) Locator() string {
	return f.ShareURL
}

// Fetch downloads the file. The returned artifact is staged: Release deletes it.
func (f *DriveFetcher) Fetch(ctx context.Context) (*Artifact, error) {
	fail := func(err error) (*Artifact, error) {
		return nil, &catalog.FetchError{Locator: f.ShareURL, Err: err}
	}

	id, err := ExtractFileID(f.ShareURL)
	if err != nil {
		return fail(err)
	}

	endpoint := f.DownloadURL
	if endpoint == "" {
		endpoint = DefaultDownloadURL
	}
	q := url.Values{}
	q.Set("export", "download")
	q.Set("id", id)
	// Skips the interstitial Drive shows for files it cannot virus-scan.
	q.Set("confirm", "t")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fail(err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	logger := logging.FromContext(ctx)
	logger.Info("downloading catalog", "file_id", id)
	start := time.Now()

	resp, err := client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fail(fmt.Errorf("unexpected status %s", resp.Status))
	}
	if mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mediaType == "text/html" {
		return fail(errors.New("received an HTML page instead of the file; is the link shared publicly?"))
	}

	tmp, err := os.CreateTemp(f.StagingDir, "catalog-*.download")
	if err != nil {
		return fail(fmt.Errorf("create staging file: %w", err))
	}
	artifact := NewStagedArtifact(tmp.Name())

	n, err := copyLimited(tmp, resp.Body, f.MaxBytes)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		artifact.Release()
		return fail(err)
	}

	logger.Info("downloaded catalog",
		"path", artifact.Path,
		"bytes", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return artifact, nil
}

func copyLimited(dst io.Writer, src io.Reader, limit int64) (int64, error) {
	if limit <= 0 {
		return io.Copy(dst, src)
	}
	n, err := io.Copy(dst, io.LimitReader(src, limit+1))
	if err != nil {
		return n, err
	}
	if n > limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit)
	}
	return n, nil
}
