// Package source retrieves catalog documents: Google Drive share links are
// downloaded into a staging directory, local files are read in place.
package source

import (
	"context"
	"errors"
	"os"
)

// Artifact is a fetched document on local disk.
type Artifact struct {
	Path string

	// staged artifacts were created by the fetcher and are removed on Release.
	staged bool
}

// NewStagedArtifact wraps a file the caller created for this run; Release
// deletes it.
func NewStagedArtifact(path string) *Artifact {
	return &Artifact{Path: path, staged: true}
}

// Staged reports whether Release deletes the file.
func (a *Artifact) Staged() bool {
	return a.staged
}

// Release removes a staged artifact. It is a no-op for in-place files and
// safe to call more than once.
func (a *Artifact) Release() error {
	if a == nil || !a.staged {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Fetcher retrieves the catalog document. Implementations clean up any
// partial download before returning an error.
type Fetcher interface {
	Fetch(ctx context.Context) (*Artifact, error)

	// Locator names the document in logs and errors.
	Locator() string
}
