// Package main hosts the mashup CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the HTTP server, executes single
// requests in-process, reports dependency health, and scaffolds
// configuration. It centralizes configuration resolution and logger setup so
// subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
