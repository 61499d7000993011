package model

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// versionPattern is a full-string match: no partial matches, no surrounding
// whitespace. The optional leading v/V is kept as a prefix and ignored for
// comparison.
var versionPattern = regexp.MustCompile(`^([vV]?)(\d+)\.(\d+)\.(\d+)$`)

// Version represents a semantic version with an optional literal prefix.
// Instances are immutable once parsed; Bump returns a new value.
type Version struct {
	Prefix string
	Major  int
	Minor  int
	Patch  int
}

// ParseVersion parses s into a Version. It fails with the
// invalid_version_format tag unless s fully matches ^[vV]?MAJOR.MINOR.PATCH$.
func ParseVersion(s string) (*Version, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return nil, goerr.New("version does not match [vV]MAJOR.MINOR.PATCH",
			goerr.T(types.ErrTagInvalidVersion), goerr.V("input", s))
	}

	// The pattern guarantees digits only; Atoi cannot fail here.
	major, _ := strconv.Atoi(m[2])
	minor, _ := strconv.Atoi(m[3])
	patch, _ := strconv.Atoi(m[4])

	return &Version{
		Prefix: m[1],
		Major:  major,
		Minor:  minor,
		Patch:  patch,
	}, nil
}

// String renders the version including its prefix, round-tripping ParseVersion.
func (v *Version) String() string {
	return fmt.Sprintf("%s%d.%d.%d", v.Prefix, v.Major, v.Minor, v.Patch)
}

// Bump returns the next version for the given release kind. KindTrial is not a
// bump: the current version is reused as-is. Bumping a higher level resets the
// lower ones to zero.
func (v *Version) Bump(kind ReleaseKind) *Version {
	next := *v
	switch kind {
	case KindMajor:
		next.Major++
		next.Minor = 0
		next.Patch = 0
	case KindMinor:
		next.Minor++
		next.Patch = 0
	case KindPatch:
		next.Patch++
	}
	return &next
}

// Compare orders versions by (major, minor, patch), ignoring the prefix.
// It returns -1 when v < o, 0 when equal, and 1 when v > o.
func (v *Version) Compare(o *Version) int {
	pairs := [][2]int{
		{v.Major, o.Major},
		{v.Minor, o.Minor},
		{v.Patch, o.Patch},
	}
	for _, p := range pairs {
		if p[0] < p[1] {
			return -1
		}
		if p[0] > p[1] {
			return 1
		}
	}
	return 0
}
