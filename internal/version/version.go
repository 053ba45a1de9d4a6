package version

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Version information for the rescomp CLI.
// These variables can be overridden at build time via -ldflags.
var (
	// Version is the semantic version of the CLI.
	Version = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// GitMessage is an optional git commit message.
	GitMessage = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with its major, minor and patch parts highlighted.
// Anything after the patch number is kept as is.
func Colored(enabled bool) string {
	major, rest, ok := strings.Cut(Version, ".")
	if !ok {
		return Version
	}
	minor, rest, ok := strings.Cut(rest, ".")
	if !ok {
		return Version
	}
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		end = len(rest)
	}
	patch, suffix := rest[:end], rest[end:]

	paint := func(c *color.Color, s string) string {
		if !enabled {
			return s
		}
		c.EnableColor()
		return c.Sprint(s)
	}
	return paint(versionMajorColor, major) + "." + paint(versionMinorColor, minor) + "." + paint(versionPatchColor, patch) + suffix
}

// Describe returns the multi-line text printed by `rescomp version`.
func Describe(enabled bool, metadataSchema uint16) string {
	var b strings.Builder
	fmt.Fprintf(&b, "rescomp %s\n", Colored(enabled))
	fmt.Fprintf(&b, "metadata schema: %d\n", metadataSchema)
	if GitCommit != "" {
		fmt.Fprintf(&b, "commit: %s", GitCommit)
		if GitMessage != "" {
			fmt.Fprintf(&b, " (%s)", GitMessage)
		}
		b.WriteByte('\n')
	}
	if BuildDate != "" {
		fmt.Fprintf(&b, "built: %s\n", BuildDate)
	}
	return b.String()
}
