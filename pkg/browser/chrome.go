package browser

import (
	"os/exec"
	"runtime"

	"github.com/jmylchreest/ticketwatch/internal/logger"
)

// DefaultChromeBinaries are searched, in order, when neither Config.ChromePath
// nor Config.ChromeBinaries is set. Bare names go through PATH; absolute paths
// cover installs that are usually not on it.
var DefaultChromeBinaries = defaultChromeBinaries(runtime.GOOS)

func defaultChromeBinaries(goos string) []string {
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser", "chrome"}
	switch goos {
	case "darwin":
		return append(names,
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		)
	case "windows":
		return append(names,
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		)
	default:
		return append(names, "/snap/bin/chromium")
	}
}

// FindChromePath returns the resolved path of the first candidate that is an
// executable, or "" if none is. With no candidates DefaultChromeBinaries is
// searched.
func FindChromePath(candidates ...string) string {
	if len(candidates) == 0 {
		candidates = DefaultChromeBinaries
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			logger.Debug("chrome binary found", "candidate", name, "path", path)
			return path
		}
	}
	logger.Warn("no chrome binary found, browser checks will fail", "candidates", len(candidates))
	return ""
}

// chromePath picks the executable for cfg. An explicit ChromePath is the only
// candidate and is kept as given when it cannot be resolved, so the launch
// error names it.
func chromePath(cfg Config) string {
	if cfg.ChromePath != "" {
		if path := FindChromePath(cfg.ChromePath); path != "" {
			return path
		}
		return cfg.ChromePath
	}
	return FindChromePath(cfg.ChromeBinaries...)
}
