package types

import "github.com/m-mizutani/goerr/v2"

// Error tags classify every failure the release pipeline can raise. The
// sequencer aborts on the first tagged error; callers branch on tags with
// goerr.HasTag instead of matching message text.
var (
	// ErrTagInvalidInput marks a bad mod name or release kind.
	ErrTagInvalidInput = goerr.NewTag("invalid_input")

	// ErrTagInvalidVersion marks a version string that does not match
	// the full ^[vV]?MAJOR.MINOR.PATCH$ grammar.
	ErrTagInvalidVersion = goerr.NewTag("invalid_version_format")

	// ErrTagPrecondition marks a dirty working tree or a branch that is
	// behind its remote tracking branch.
	ErrTagPrecondition = goerr.NewTag("precondition_failed")

	// ErrTagDuplicateVersion marks a computed target version whose tag
	// already exists.
	ErrTagDuplicateVersion = goerr.NewTag("duplicate_version")

	// ErrTagIOFailure marks a copy/write/archive failure.
	ErrTagIOFailure = goerr.NewTag("io_failure")

	// ErrTagVCSFailure marks a git operation that exited non-zero.
	ErrTagVCSFailure = goerr.NewTag("vcs_operation_failed")

	// ErrTagEditorAborted marks a non-zero exit from the interactive
	// changelog editor.
	ErrTagEditorAborted = goerr.NewTag("editor_aborted")
)
