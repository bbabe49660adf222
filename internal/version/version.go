package version

import "github.com/fatih/color"

// Version information for the ncsdec CLI.
// GitCommit and BuildDate can be set at build time via -ldflags -X;
// Version is assembled from colored segments at package init.

var (
	versionMajorColor = color.New(color.FgYellow, color.Bold)
	versionMinorColor = color.New(color.FgGreen, color.Bold)
	versionPatchColor = color.New(color.FgBlue, color.Bold)

	// Version is the semantic version of the CLI.
	Version = versionMajorColor.Sprint("0") + "." + versionMinorColor.Sprint("2") + "." + versionPatchColor.Sprint("0")

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

// Plain returns the version without color codes, for logs and file
// headers.
const Plain = "0.2.0"
