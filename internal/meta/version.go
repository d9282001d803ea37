package meta

import (
	"fmt"
	"runtime"
)

// Info describes the build context of an amictl binary, stamped in by the
// Go linker. See the vars below.
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
	GoTag     string
}

// These will be filled in using the linker -X flag
var (
	// Version as an arbitrary string
	Version string

	// Build is the Git sha from when we are building
	Build string

	// Branch is the Git branch that we are building from
	Branch string

	// BuildTimeUTC is the build time in UTC (year/month/day hour:min:sec)
	BuildTimeUTC string

	// GoTag is the Go build tags, see https://golang.org/pkg/go/build/#hdr-Build_Constraints
	GoTag string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   Version,
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		GoTag:     GoTag,
		Platform:  platform,
	}
}

// UserAgent names this build, e.g. "amictl/1.2.0 (linux amd64)".
func (i Info) UserAgent() string {
	version := i.Version
	if version == "" {
		version = "dev"
	}

	return fmt.Sprintf("amictl/%s (%s)", version, i.Platform)
}

func (i Info) String() string {
	build := i.Build
	if build == "" {
		build = "unknown"
	}

	return fmt.Sprintf("%s build %s %s", i.UserAgent(), build, i.GoVersion)
}
