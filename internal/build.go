package internal

import (
	"log/slog"
	"runtime/debug"
	"time"
)

// Build information stamped by the Go toolchain, see "go help buildvcs".
// Values stay at their defaults when the binary is built without VCS info.
var (
	BuildRevision      = "unknown"
	BuildRevisionTime  = time.Time{}
	BuildLocalModified = "unknown"
)

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	readBuildSettings(info.Settings)
}

func readBuildSettings(settings []debug.BuildSetting) {
	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			BuildRevision = setting.Value
		case "vcs.time":
			t, err := time.Parse(time.RFC3339, setting.Value)
			if err != nil {
				continue
			}
			BuildRevisionTime = t
		case "vcs.modified":
			BuildLocalModified = setting.Value
		}
	}
}

// BuildAttr groups the build information for logging.
func BuildAttr() slog.Attr {
	return slog.Group("build",
		slog.String("revision", BuildRevision),
		slog.Time("revisionTime", BuildRevisionTime),
		slog.String("localModified", BuildLocalModified),
	)
}
