// Package textutil provides text helpers shared by the pipeline: filename
// sanitizing for workspace files, and Unicode case folding for matching
// performer names against search metadata.
package textutil
