// Package version reports the version of the zoar binary.
package version

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/Masterminds/semver/v3"

	"github.com/yaklabco/zoar/pkg/ui"
)

// Version is the CLI version. It can be overridden at build time via:
//
//	-ldflags "-X github.com/yaklabco/zoar/cmd/zoar/version.Version=v0.0.0"
//
// If left as "dev", the version is taken from Go build info.
var Version = "dev" //nolint:gochecknoglobals // Populated by goreleaser ldflags.

// Commit is the git commit hash, overridable like Version.
var Commit = "" //nolint:gochecknoglobals // Populated by goreleaser ldflags.

// BuildDate is the RFC3339 timestamp of the build, overridable like Version.
var BuildDate = "" //nolint:gochecknoglobals // Populated by goreleaser ldflags.

// Info describes the running binary.
type Info struct {
	Version string
	Commit  string
	Built   time.Time
}

// Read combines the ldflags values with the build info embedded by the Go
// toolchain. Ldflags win.
func Read(_ context.Context) Info {
	info := Info{
		Version: strings.TrimSpace(Version),
		Commit:  strings.TrimSpace(Commit),
	}
	if t, ok := parseTime(BuildDate); ok {
		info.Built = t
	}

	var revision, dirty, vcsTime string
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				if s.Value == "true" {
					dirty = "-dirty"
				}
			case "vcs.time":
				vcsTime = s.Value
			}
		}
		// go install module@version embeds the module version; source builds
		// report "(devel)".
		if info.Version == "" || info.Version == "dev" {
			if mv := strings.TrimSpace(bi.Main.Version); mv != "" && mv != "(devel)" {
				info.Version = mv
			} else if revision != "" {
				info.Version = revision + dirty
			}
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	// Bare revisions are left alone.
	if sv, err := semver.NewVersion(info.Version); err == nil && strings.Contains(info.Version, ".") {
		info.Version = "v" + sv.String()
	}
	if info.Commit == "" {
		info.Commit = revision
	}
	if info.Built.IsZero() {
		if t, ok := parseTime(vcsTime); ok {
			info.Built = t
		}
	}
	return info
}

func (i Info) parts() []string {
	parts := []string{i.Version}
	if i.Commit != "" && i.Commit != i.Version {
		parts = append(parts, i.Commit)
	}
	if !i.Built.IsZero() {
		parts = append(parts, i.Built.In(time.Local).Format(time.RFC3339))
	}
	return parts
}

func (i Info) String() string {
	return strings.Join(i.parts(), "-")
}

// Colorized renders the version line in the fang help palette.
func (i Info) Colorized() string {
	cs := ui.GetFangScheme()
	styles := []lipgloss.Style{
		lipgloss.NewStyle().Foreground(cs.QuotedString),
		lipgloss.NewStyle().Foreground(cs.Program),
		lipgloss.NewStyle().Foreground(cs.Flag),
	}
	sep := lipgloss.NewStyle().Foreground(cs.Base).Render("-")

	parts := i.parts()
	for n := range parts {
		parts[n] = styles[min(n, len(styles)-1)].Render(parts[n])
	}
	return strings.Join(parts, sep)
}

// OverallVersionStringColorized is the version line of --version.
func OverallVersionStringColorized(ctx context.Context) string {
	return Read(ctx).Colorized()
}

func parseTime(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
