package git

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/interfaces"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type client struct {
	dir string
}

// NewClient creates a git client operating on the repository containing dir.
func NewClient(dir string) interfaces.VCSClient {
	return &client{dir: dir}
}

// run executes git with the given arguments and returns its stdout. Non-zero
// exits are wrapped with the vcs_operation_failed tag and stderr attached.
func (c *client) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", c.dir}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", goerr.Wrap(err, "git command failed",
			goerr.T(types.ErrTagVCSFailure),
			goerr.V("args", args),
			goerr.V("stderr", strings.TrimSpace(stderr.String())),
		)
	}

	return stdout.String(), nil
}

// ResolveRoot returns the absolute path of the repository root.
func (c *client) ResolveRoot(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// IsClean reports whether the working tree has no staged, modified or
// untracked files.
func (c *client) IsClean(ctx context.Context, ignoreSubmodules bool) (bool, error) {
	args := []string{"status", "--porcelain"}
	if ignoreSubmodules {
		args = append(args, "--ignore-submodules")
	}

	out, err := c.run(ctx, args...)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// Clean removes untracked files under path, including ignored files when
// includeIgnored is set.
func (c *client) Clean(ctx context.Context, path string, includeIgnored bool) error {
	args := []string{"clean", "-d", "--force"}
	if includeIgnored {
		args = append(args, "-x")
	}
	args = append(args, "--", path)

	_, err := c.run(ctx, args...)
	return err
}

// IsUpToDate fetches the remote and reports whether the local branch has no
// commits to pull from its tracking branch. A branch without an upstream is
// treated as up to date (there is nothing to diverge from).
func (c *client) IsUpToDate(ctx context.Context) (bool, error) {
	if _, err := c.run(ctx, "rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{upstream}"); err != nil {
		return true, nil
	}

	if _, err := c.run(ctx, "fetch", "--quiet"); err != nil {
		return false, err
	}

	out, err := c.run(ctx, "rev-list", "--count", "HEAD..@{upstream}")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "0", nil
}

// LogSince returns one-line commit summaries after ref in commit order
// (oldest first). An empty ref enumerates the entire history.
func (c *client) LogSince(ctx context.Context, ref string) ([]string, error) {
	args := []string{"log", "--reverse", "--pretty=format:%s"}
	if ref != "" {
		args = append(args, ref+"..HEAD")
	}

	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// TagExists reports whether a tag of the given name exists.
func (c *client) TagExists(ctx context.Context, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", c.dir,
		"rev-parse", "-q", "--verify", "refs/tags/"+name)
	if err := cmd.Run(); err != nil {
		// rev-parse -q --verify exits 1 for a missing ref without output.
		// Anything else (128 for a broken repo) is a real failure.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to verify tag",
			goerr.T(types.ErrTagVCSFailure), goerr.V("tag", name))
	}
	return true, nil
}

// CreateTag creates an annotated tag.
func (c *client) CreateTag(ctx context.Context, name, message string) error {
	_, err := c.run(ctx, "tag", "--annotate", name, "--message", message)
	return err
}

// Add stages the given paths.
func (c *client) Add(ctx context.Context, paths ...string) error {
	_, err := c.run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// Commit commits the staged changes with the given message.
func (c *client) Commit(ctx context.Context, message string) error {
	_, err := c.run(ctx, "commit", "--message", message)
	return err
}

// Push pushes the current branch; --follow-tags carries the annotated release
// tag in the same operation.
func (c *client) Push(ctx context.Context, withTags bool) error {
	args := []string{"push"}
	if withTags {
		args = append(args, "--follow-tags")
	}
	_, err := c.run(ctx, args...)
	return err
}
