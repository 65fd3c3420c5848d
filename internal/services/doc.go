// Package services defines shared utilities consumed by the pipeline stages
// and their external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs and stage names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into validation, source, processing, size, and delivery categories.
//   - A bounded retry policy applied at the media source boundary.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
