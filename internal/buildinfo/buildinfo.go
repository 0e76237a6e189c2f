// Package buildinfo stores build-time metadata shared across packages.
package buildinfo

import "net/http"

// Version and Commit are set via ldflags during build.
var (
	Version = "dev"
	Commit  = "none"
)

// UserAgent identifies this build when dialing VTube Studio.
func UserAgent() string {
	return "tilepad-vtstudio/" + Version
}

// Header returns the handshake headers sent with every dial.
func Header() http.Header {
	return http.Header{"User-Agent": []string{UserAgent()}}
}
