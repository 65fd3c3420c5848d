// Package ffprobe wraps ffprobe's JSON output for audio clip inspection.
//
// Inspect runs the binary and decodes streams and container metadata;
// Prober binds a configured binary so callers can depend on a small
// interface instead of the exec details.
package ffprobe
