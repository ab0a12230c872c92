// Package version parses semantic versions and selects version-gated
// implementations from dispatch tables.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Semver models a semantic version major.minor.patch.
type Semver struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// New returns the version major.minor.patch.
func New(major, minor, patch uint32) Semver {
	return Semver{major, minor, patch}
}

// Parse reads "1.8.2", tolerating a leading "v" and a missing patch.
func Parse(s string) (Semver, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return Semver{}, fmt.Errorf("version: malformed %q", s)
	}

	var nums [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Semver{}, fmt.Errorf("version: malformed %q: %w", s, err)
		}
		nums[i] = uint32(n)
	}
	return Semver{nums[0], nums[1], nums[2]}, nil
}

// MustParse is Parse for constants.
func MustParse(s string) Semver {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromSpecVersion converts a state-chain runtime spec version into a
// semantic version: 180 is 1.8.0 and 10902 is 1.9.2.
func FromSpecVersion(spec uint32) Semver {
	if spec >= 10000 {
		return Semver{spec / 10000, (spec / 100) % 100, spec % 100}
	}
	return Semver{spec / 100, (spec / 10) % 10, spec % 10}
}

// Compare returns -1, 0 or 1.
func (s Semver) Compare(o Semver) int {
	switch {
	case s.Major != o.Major:
		return cmp(s.Major, o.Major)
	case s.Minor != o.Minor:
		return cmp(s.Minor, o.Minor)
	default:
		return cmp(s.Patch, o.Patch)
	}
}

func cmp(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s >= o.
func (s Semver) AtLeast(o Semver) bool {
	return s.Compare(o) >= 0
}

// String formats the version as major.minor.patch.
func (s Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", s.Major, s.Minor, s.Patch)
}
