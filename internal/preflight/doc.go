// Package preflight provides readiness checks for the filesystem paths,
// mail relay, and external binaries the mashup pipeline depends on.
//
// These checks run in two contexts:
//   - The server runs RunAll at startup and logs each failure so operators
//     see a broken install before the first request arrives.
//   - The CLI "mashup status" command and the /api/status endpoint render the
//     same results for display.
package preflight
