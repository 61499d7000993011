package interfaces

import (
	"context"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/model"
)

// ReleaseUseCase defines the release preparation pipeline
type ReleaseUseCase interface {
	// PrepareRelease runs the full release sequence for the request: preflight,
	// staging, packaging, and (for real kinds) changelog, commit, tag and push.
	PrepareRelease(ctx context.Context, req *model.ReleaseRequest) (*model.ReleaseResult, error)
}
