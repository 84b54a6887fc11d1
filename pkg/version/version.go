// Package version provides version information for the medianizer service.
package version

// Version is the current version of the medianizer service.
const Version = "0.1.0"

// AgentString returns the User-Agent sent by outbound feed requests.
// Format: medianizer-go/v{version}
func AgentString() string {
	return "medianizer-go/v" + Version
}
