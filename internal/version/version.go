// Package version carries build-time version metadata and the semver
// compatibility checks used both by the CLI's check-version command and
// by the state store when validating a persisted artifact's
// schema_version against what this binary understands.
package version

import (
	"fmt"
	"runtime/debug"

	"github.com/Masterminds/semver/v3"
)

var (
	Version   string = "0.0.0"
	BuildTime string = "local"
	GitSHA    string = "unknown"
)

// BuildVersionString constructs a version string from build metadata
// injected at build time, falling back to runtime/debug.ReadBuildInfo
// when installed via `go install`.
func BuildVersionString() string {
	versionNumber, buildTime, gitSha, dirty := Version, BuildTime, GitSHA, ""
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			versionNumber = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.time":
				buildTime = setting.Value
			case "vcs.revision":
				gitSha = setting.Value
			case "vcs.modified":
				if setting.Value == "true" {
					dirty = "-dirty"
				}
			}
		}
	}
	return fmt.Sprintf("%s (build: %s, sha: %s%s)", versionNumber, buildTime, gitSha, dirty)
}

// AssertVersion checks that current satisfies a user-supplied semver
// constraint, e.g. ">=1.2.3" or "=1.2.3".
func AssertVersion(constraint string, current string) error {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("version: invalid constraint %q: %w", constraint, err)
	}
	v, err := semver.NewVersion(current)
	if err != nil {
		return fmt.Errorf("version: current version %q is missing or invalid: %w", current, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("version: current version %s does not satisfy constraint %q", current, constraint)
	}
	return nil
}

// SchemaCompatible checks that a persisted artifact's schema_version
// satisfies the running binary's expectation, expressed as a constraint
// (e.g. "^1.0.0" accepts any 1.x.y). Used by internal/state before
// trusting a states_*.yaml/params_specs.yaml document.
func SchemaCompatible(constraint string, fileSchemaVersion string) error {
	if fileSchemaVersion == "" {
		// Pre-schema-versioning files are treated as compatible; this
		// only matters for a from-scratch repo, so there are none yet,
		// but the check stays lenient for forward compatibility.
		return nil
	}
	return AssertVersion(constraint, fileSchemaVersion)
}
