// Package daemon coordinates the long-running mashup server.
//
// It wires configuration, the pipeline runner, and the HTTP API into a single
// lifecycle with flock-based locking on the workspace root, so two servers
// never sweep each other's workspaces. Startup removes stale request
// workspaces left by a crash and logs preflight failures. A semaphore bounds
// how many pipelines run at once.
//
// Keep orchestration logic here: pipeline stages live in their own packages
// while the daemon focuses on startup, shutdown, and request admission.
package daemon
