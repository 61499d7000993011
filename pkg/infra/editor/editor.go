package editor

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/interfaces"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type editor struct {
	command string
}

// New creates an interactive editor. When command is empty the editor is
// resolved from git's configured default (git var GIT_EDITOR), which itself
// honors VISUAL/EDITOR and falls back to vi.
func New(command string) interfaces.Editor {
	return &editor{command: command}
}

// Edit opens path in the editor with the terminal attached and blocks until
// the editor process exits. A non-zero exit carries the editor_aborted tag.
func (e *editor) Edit(ctx context.Context, path string) error {
	command := e.command
	if command == "" {
		resolved, err := gitEditor(ctx)
		if err != nil {
			return err
		}
		command = resolved
	}

	// The editor command may carry its own arguments ("code --wait"), so it
	// runs through the shell, the same way git launches it.
	cmd := exec.CommandContext(ctx, "sh", "-c", command+" "+shellQuote(path))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return goerr.Wrap(err, "editor exited non-zero, aborting release",
			goerr.T(types.ErrTagEditorAborted),
			goerr.V("editor", command),
			goerr.V("path", path),
		)
	}

	return nil
}

// gitEditor asks git for its configured editor.
func gitEditor(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "var", "GIT_EDITOR").Output()
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve editor from git var GIT_EDITOR",
			goerr.T(types.ErrTagVCSFailure))
	}

	command := strings.TrimSpace(string(out))
	if command == "" {
		return "", goerr.New("git reported an empty editor",
			goerr.T(types.ErrTagEditorAborted))
	}
	return command, nil
}

// shellQuote single-quotes path for the sh -c invocation.
func shellQuote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
