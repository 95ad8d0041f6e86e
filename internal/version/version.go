// Package version defines stepwise version information.
//
// CommitHash should be set using -ldflags during compilation.
package version

import (
	"fmt"
	"strings"
)

// CommitHash stores the current git commit hash of this build.
var CommitHash string

const (
	appMajor uint = 0
	appMinor uint = 3
	appPatch uint = 0

	// appPreRelease may only contain [0-9A-Za-z-].
	appPreRelease = ""
)

// Version returns the semantic version of the build.
func Version() string {
	v := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
	if appPreRelease != "" {
		v += "-" + appPreRelease
	}
	return v
}

// RichVersion returns Version followed by the commit hash, when known.
func RichVersion() string {
	if h := strings.TrimSpace(CommitHash); h != "" {
		return fmt.Sprintf("%s commit_hash=%s", Version(), h)
	}
	return Version()
}
