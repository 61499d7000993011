package model

import (
	"regexp"
	"strings"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// ReleaseKind selects the release path: a Trial run packages and installs the
// mod locally without touching history, the other kinds bump the version and
// finalize it as a commit + tag + push.
type ReleaseKind string

const (
	KindTrial ReleaseKind = "trial"
	KindMajor ReleaseKind = "major"
	KindMinor ReleaseKind = "minor"
	KindPatch ReleaseKind = "patch"
)

// ParseReleaseKind parses s case-insensitively into a ReleaseKind.
func ParseReleaseKind(s string) (ReleaseKind, error) {
	switch ReleaseKind(strings.ToLower(s)) {
	case KindTrial:
		return KindTrial, nil
	case KindMajor:
		return KindMajor, nil
	case KindMinor:
		return KindMinor, nil
	case KindPatch:
		return KindPatch, nil
	default:
		return "", goerr.New("unknown release kind",
			goerr.T(types.ErrTagInvalidInput), goerr.V("kind", s))
	}
}

// IsReal reports whether the kind finalizes repository history.
func (k ReleaseKind) IsReal() bool {
	return k != KindTrial
}

// Mod names are alphanumeric words separated by spaces and must start and end
// alphanumeric.
var modNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9 ]*[A-Za-z0-9])?$`)

// ReleaseRequest is the validated, immutable input of a single release run.
type ReleaseRequest struct {
	ModName    string
	Kind       ReleaseKind
	AllowDirty bool // debug escape hatch: skip the dirty working tree check
	Rehearsal  bool // exercise the pipeline without mutating repository state
}

// NewReleaseRequest validates the mod name once at construction.
func NewReleaseRequest(modName string, kind ReleaseKind, allowDirty, rehearsal bool) (*ReleaseRequest, error) {
	if !modNamePattern.MatchString(modName) {
		return nil, goerr.New("mod name must be alphanumeric words starting and ending alphanumeric",
			goerr.T(types.ErrTagInvalidInput), goerr.V("mod_name", modName))
	}

	return &ReleaseRequest{
		ModName:    modName,
		Kind:       kind,
		AllowDirty: allowDirty,
		Rehearsal:  rehearsal,
	}, nil
}

// ArchiveName returns the .rmod file name for the mod. RaftModLoader expects
// space-free archive names even though the display name may contain spaces.
func (r *ReleaseRequest) ArchiveName() string {
	return strings.ReplaceAll(r.ModName, " ", "") + ".rmod"
}

// ReleaseContext carries the mutable state of one release run. The sequencer
// owns it exclusively; it is created at run start and discarded at run end,
// never persisted.
type ReleaseContext struct {
	RunID      string
	RepoRoot   string
	Current    *Version
	Target     *Version
	StagingDir string
	Archive    string   // path of the built .rmod, set once the archive exists
	Changelog  []string // one-line commit summaries in commit order
}

// ReleaseResult summarizes a completed run for CLI output.
type ReleaseResult struct {
	Version   string
	Archive   string
	Installed string // install destination for trial runs, empty otherwise
	Pushed    bool
}
