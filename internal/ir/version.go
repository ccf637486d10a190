package ir

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version constants for the snapshot schema and resolver.
const (
	// SchemaVersion is the snapshot schema version.
	SchemaVersion = "1"

	// ResolverVersion is the depres resolver version.
	ResolverVersion = "0.1.0"
)

// CompareVersions orders two backend or module version strings.
// Versions that parse as semantic versions compare semantically; anything
// else falls back to byte order, and semantic versions sort before
// unparseable ones. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
