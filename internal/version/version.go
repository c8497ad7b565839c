// Package version centralizes the server and API version strings advertised
// to clients, mDNS, and backup manifests.
package version

const (
	// Server is the DevFlow server version.
	Server = "1.0.0"

	// API is the HTTP API version segment.
	API = "v1"
)
