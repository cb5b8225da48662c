package source

import (
	"context"
	"errors"
	"os"

	"github.com/JonMunkholm/catalog/internal/catalog"
)

// FileFetcher serves a document that already exists on local disk. The file
// is never deleted.
type FileFetcher struct {
	Path string
}

// Locator returns the file path.
func (f *FileFetcher) Locator() string {
	return f.Path
}

// Fetch checks that the file exists and is a regular file.
func (f *FileFetcher) Fetch(ctx context.Context) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, &catalog.FetchError{Locator: f.Path, Err: err}
	}
	info, err := os.Stat(f.Path)
	if err != nil {
		return nil, &catalog.FetchError{Locator: f.Path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &catalog.FetchError{Locator: f.Path, Err: errors.New("not a regular file")}
	}
	return &Artifact{Path: f.Path}, nil
}
