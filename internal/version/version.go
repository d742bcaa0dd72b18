package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const (
	defaultModule  = "pkt.systems/rtgui"
	unknownVersion = "v0.0.0-unknown"
)

// buildVersion is set via -ldflags "-X pkt.systems/rtgui/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Module    string
	Version   string
	Revision  string
	Time      time.Time
	Dirty     bool
	GoVersion string
}

// String renders the module, version and toolchain on one line.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Module)
	b.WriteByte(' ')
	b.WriteString(i.Version)
	if i.Dirty && !strings.HasSuffix(i.Version, "+dirty") {
		b.WriteString("+dirty")
	}
	if i.GoVersion != "" {
		b.WriteString(" (")
		b.WriteString(i.GoVersion)
		b.WriteByte(')')
	}
	return b.String()
}

// Read collects version details from the linker flag and build info.
func Read() Info {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info, buildVersion)
}

// Current returns the version string without a dirty suffix.
func Current() string {
	return strings.TrimSuffix(Read().Version, "+dirty")
}

// Module returns the main module path.
func Module() string {
	return Read().Module
}

func fromBuildInfo(info *debug.BuildInfo, linked string) Info {
	out := Info{Module: defaultModule, Version: unknownVersion}
	if info != nil {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			out.Module = path
		}
		out.GoVersion = info.GoVersion
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				out.Revision = setting.Value
			case "vcs.time":
				if ts, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					out.Time = ts.UTC()
				}
			case "vcs.modified":
				out.Dirty = setting.Value == "true"
			}
		}
	}
	switch {
	case strings.TrimSpace(linked) != "":
		out.Version = strings.TrimSpace(linked)
	case info != nil && info.Main.Version != "" && info.Main.Version != "(devel)":
		out.Version = info.Main.Version
	case out.Revision != "" && !out.Time.IsZero():
		out.Version = pseudo(out.Time, out.Revision)
	}
	return out
}

// pseudo builds a Go-style pseudo version from a VCS stamp.
func pseudo(ts time.Time, revision string) string {
	if len(revision) > 12 {
		revision = revision[:12]
	}
	return "v0.0.0-" + ts.Format("20060102150405") + "-" + revision
}
