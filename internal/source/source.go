// Package source is the boundary to the media backend. MediaSource searches
// for candidate tracks and fetches a chosen one into a local directory; the
// yt-dlp implementation shells out to the yt-dlp CLI.
package source

import (
	"context"

	"mashup/internal/mashup"
)

// MediaSource finds and retrieves tracks.
type MediaSource interface {
	// Search returns up to limit metadata-only candidates in backend order.
	Search(ctx context.Context, query string, limit int) ([]mashup.Candidate, error)
	// Fetch downloads locator into destDir using baseName (without extension)
	// and returns the written file path.
	Fetch(ctx context.Context, locator, destDir, baseName string) (string, error)
}
