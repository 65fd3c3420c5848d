package mashup

import (
	"fmt"
	"time"
)

const (
	MinCount       = 1
	MaxCount       = 20
	MinDuration    = 1
	MaxDuration    = 120
	DefaultSeconds = 10
)

// Candidate is one search result considered for selection.
type Candidate struct {
	Title    string
	Uploader string
	// ViewCount is nil when the source did not report one.
	ViewCount *int64
	// Locator is opaque to everything except the media source.
	Locator string
	// SearchRank is the zero-based position in the raw search result.
	SearchRank int
}

// Views returns the view count with unknown treated as zero.
func (c Candidate) Views() int64 {
	if c.ViewCount == nil {
		return 0
	}
	return *c.ViewCount
}

// Asset is a candidate fetched into the request workspace.
type Asset struct {
	Candidate Candidate
	Path      string
	// Ordinal is the position in the ranked selection and never changes.
	Ordinal int
}

// Clip is a uniform-duration excerpt of one asset.
type Clip struct {
	Ordinal    int
	SearchRank int
	Path       string
	Title      string
}

// Artifact is the concatenated mashup audio.
type Artifact struct {
	Path string
	Size int64
}

// Package is the archive that wraps the artifact.
type Package struct {
	Path string
	Size int64
}

// Request is a validated mashup request.
type Request struct {
	Singer   string
	Count    int
	Duration int
	Email    string
}

// ClipDuration returns the per-clip duration.
func (r Request) ClipDuration() time.Duration {
	return time.Duration(r.Duration) * time.Second
}

func (r Request) String() string {
	return fmt.Sprintf("%q x%d (%ds) -> %s", r.Singer, r.Count, r.Duration, r.Email)
}
