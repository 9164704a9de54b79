// Package version exposes ticketwatch build metadata.
//
// The variables are stamped at build time:
//
//	go build -ldflags "-X github.com/jmylchreest/ticketwatch/internal/version.Version=1.2.0 \
//	  -X github.com/jmylchreest/ticketwatch/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Info is the structured form printed by `ticketwatch version --json`.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// UserAgent identifies ticketwatch to the Discord API, which requires the
// "DiscordBot (url, version)" form.
func UserAgent() string {
	return fmt.Sprintf("DiscordBot (https://github.com/jmylchreest/ticketwatch, %s)", Version)
}

// Full returns a multi-line description for the version command.
func Full() string {
	info := Get()
	var sb strings.Builder
	fmt.Fprintf(&sb, "ticketwatch %s\n", info.Version)
	fmt.Fprintf(&sb, "  Commit:     %s\n", info.Commit)
	fmt.Fprintf(&sb, "  Built:      %s\n", info.BuildDate)
	fmt.Fprintf(&sb, "  Go version: %s\n", info.GoVersion)
	fmt.Fprintf(&sb, "  OS/Arch:    %s", info.Platform)
	return sb.String()
}
