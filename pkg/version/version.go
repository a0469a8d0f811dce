package version

// Build holds the build identifier, injected via -ldflags. Default "dev".
var Build = "dev"

// Commit is the source revision, also injected via -ldflags.
var Commit = ""

// String is the form printed by --version and the startup log line.
func String() string {
	if Commit == "" {
		return Build
	}
	return Build + " (" + Commit + ")"
}
