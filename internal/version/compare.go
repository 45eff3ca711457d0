package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
)

// CheckABICompatibility checks whether the harness ABI version and the
// version a strategy card declares are compatible. Returns nil if compatible,
// error with details if not.
//
// Compatibility Rules:
//   - An empty card version skips the check (the card predates ABI tagging)
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckABICompatibility(harnessVersion, cardVersion string) error {
	if cardVersion == "" {
		return nil
	}

	harnessVersion = strings.TrimPrefix(harnessVersion, "v")
	cardVersion = strings.TrimPrefix(cardVersion, "v")

	// Skip version check for "main" (development builds)
	if harnessVersion == "main" || cardVersion == "main" {
		return nil
	}

	harnessSemver, err := semver.NewVersion(harnessVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid harness version '%s'", harnessVersion)
	}

	cardSemver, err := semver.NewVersion(cardVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeVersionMismatch, err, "invalid card version '%s'", cardVersion)
	}

	if harnessSemver.Major() != cardSemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: harness is %d.x.x but strategy requires %d.x.x",
			harnessSemver.Major(), cardSemver.Major())
	}

	if harnessSemver.Minor() != cardSemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: harness is %d.%d.x but strategy requires %d.%d.x",
			harnessSemver.Major(), harnessSemver.Minor(),
			cardSemver.Major(), cardSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}
