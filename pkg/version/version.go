// Package version holds build information stamped in at link time.
package version

import "fmt"

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info describes the running build.
type Info struct {
	Version   string
	GitCommit string
	BuildTime string
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("Version: %s\nGitCommit: %s\nBuildTime: %s",
		i.Version, i.GitCommit, i.BuildTime)
}
