package interfaces

import "context"

// VCSClient defines the version control operations the release pipeline needs.
type VCSClient interface {
	// ResolveRoot returns the absolute path of the repository root.
	ResolveRoot(ctx context.Context) (string, error)

	// IsClean reports whether the working tree has no staged, modified or
	// untracked files. Submodule state is ignored when ignoreSubmodules is set.
	IsClean(ctx context.Context, ignoreSubmodules bool) (bool, error)

	// Clean removes untracked files under path, including ignored files when
	// includeIgnored is set.
	Clean(ctx context.Context, path string, includeIgnored bool) error

	// IsUpToDate reports whether the local branch has no commits to pull from
	// its remote tracking branch.
	IsUpToDate(ctx context.Context) (bool, error)

	// LogSince returns one-line commit summaries after ref, in commit order.
	// An empty ref enumerates the entire history.
	LogSince(ctx context.Context, ref string) ([]string, error)

	// TagExists reports whether a tag of the given name exists.
	TagExists(ctx context.Context, name string) (bool, error)

	// CreateTag creates an annotated tag.
	CreateTag(ctx context.Context, name, message string) error

	// Add stages the given paths.
	Add(ctx context.Context, paths ...string) error

	// Commit commits the staged changes with the given message.
	Commit(ctx context.Context, message string) error

	// Push pushes the current branch, including tags when withTags is set.
	Push(ctx context.Context, withTags bool) error
}
