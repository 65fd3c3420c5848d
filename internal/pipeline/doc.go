// Package pipeline runs one mashup request from ranking to delivery.
//
// A Runner owns no state between runs. Each Run creates a private workspace,
// walks the stage sequence, and removes the workspace on every exit path.
// Stage failures surface as *StageError values carrying the message shown to
// the requester; the underlying error stays available through Unwrap for
// logging and classification.
package pipeline
