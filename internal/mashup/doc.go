// Package mashup defines the data that flows through one mashup request:
// ranked candidates, retrieved assets, trimmed clips, the concatenated
// artifact, and the packaged archive, plus validation of incoming requests.
package mashup
