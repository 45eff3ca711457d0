package version

// Version is the current ABI version of the harness.
// This value is set at build time using ldflags:
// -ldflags "-X github.com/rxtech-lab/systrade-bench/internal/version.Version=1.2.3"
// The default value "main" indicates a development build.
var Version = "v1.0.0"

// GetVersion returns the current ABI version of the harness.
func GetVersion() string {
	return Version
}
