package interfaces

import "context"

// Editor opens a file in an interactive editor and blocks until the editor
// process exits. A non-zero exit aborts the release run.
type Editor interface {
	Edit(ctx context.Context, path string) error
}
