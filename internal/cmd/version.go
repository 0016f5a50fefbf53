package cmd

// Version, Commit and BuildDate are set via -ldflags at build time
// (e.g. -X github.com/npawatch/npawatch/internal/cmd.Version=1.2.3).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Identity is the version triple logged once at startup.
type Identity struct {
	Version   string
	Commit    string
	BuildDate string
}

// GetAppIdentity returns the process's version/commit/build-date triple.
func GetAppIdentity() Identity {
	return Identity{Version: Version, Commit: Commit, BuildDate: BuildDate}
}
