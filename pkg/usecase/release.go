package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/interfaces"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/model"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/types"
	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Config locates the release payload inside the repository. All paths are
// relative to the repository root except InstallDir.
type Config struct {
	SourceFile    string   // single-file mod source, version token rewritten
	ManifestFile  string   // modinfo.json, version token rewritten
	AssetFiles    []string // banner/icon images, copied verbatim
	VersionFile   string   // single line, [vV]MAJOR.MINOR.PATCH
	VersionToken  string   // literal placeholder replaced at stage time
	// StagingDir is ephemeral and rebuilt from scratch every run. It must be
	// gitignored: the staged payload and archive are written into the repo,
	// and a non-ignored directory trips the clean-tree re-verification after
	// commit and before push.
	StagingDir string
	ChangelogFile string   // release notes draft, committed with the version
	ArchiveIgnore []string // base-name globs excluded from the archive
	InstallDir    string   // RaftModLoader mods directory for trial installs
}

type releaseUseCase struct {
	vcs    interfaces.VCSClient
	editor interfaces.Editor
	cfg    *Config
}

// NewRelease creates the release pipeline use case.
func NewRelease(vcs interfaces.VCSClient, editor interfaces.Editor, cfg *Config) interfaces.ReleaseUseCase {
	return &releaseUseCase{
		vcs:    vcs,
		editor: editor,
		cfg:    cfg,
	}
}

// PrepareRelease drives the release state machine in order: preflight →
// staging → archive, then either a local trial install or the finalizing
// changelog → version → commit → tag → push sequence. Every step short-circuits
// on its first error; already-durable git state is never rolled back, ordering
// alone bounds the damage of a partial failure.
func (uc *releaseUseCase) PrepareRelease(ctx context.Context, req *model.ReleaseRequest) (*model.ReleaseResult, error) {
	root, err := uc.vcs.ResolveRoot(ctx)
	if err != nil {
		return nil, err
	}

	rc := &model.ReleaseContext{
		RunID:      uuid.NewString(),
		RepoRoot:   root,
		StagingDir: filepath.Join(root, uc.cfg.StagingDir),
	}

	logger := ctxlog.From(ctx).With("run_id", rc.RunID, "mod", req.ModName, "kind", string(req.Kind))
	ctx = ctxlog.With(ctx, logger)

	logger.Info("Starting release preparation", "repo_root", rc.RepoRoot, "rehearsal", req.Rehearsal)

	if err := uc.preflight(ctx, req); err != nil {
		return nil, err
	}

	if err := uc.resolveVersions(ctx, rc, req); err != nil {
		return nil, err
	}

	if err := uc.checkDuplicate(ctx, rc, req); err != nil {
		return nil, err
	}

	if err := uc.stage(ctx, rc); err != nil {
		return nil, err
	}

	if err := uc.buildArchive(ctx, rc, req); err != nil {
		return nil, err
	}

	if req.Kind == model.KindTrial {
		dest, err := uc.install(ctx, rc, req)
		if err != nil {
			return nil, err
		}

		logger.Info("Trial release installed", "dest", dest)
		return &model.ReleaseResult{
			Version:   rc.Target.String(),
			Archive:   rc.Archive,
			Installed: dest,
		}, nil
	}

	if err := uc.writeChangelog(ctx, rc, req); err != nil {
		return nil, err
	}

	if err := uc.persistVersion(ctx, rc, req); err != nil {
		return nil, err
	}

	if err := uc.commitRelease(ctx, rc, req); err != nil {
		return nil, err
	}

	if err := uc.tagRelease(ctx, rc, req); err != nil {
		return nil, err
	}

	if err := uc.pushRelease(ctx, rc, req); err != nil {
		return nil, err
	}

	logger.Info("Release prepared", "version", rc.Target.String())
	return &model.ReleaseResult{
		Version: rc.Target.String(),
		Archive: rc.Archive,
		Pushed:  !req.Rehearsal,
	}, nil
}

// preflight verifies a clean working tree and remote synchronization. Trial
// runs skip it entirely: they touch nothing the checks protect. Rehearsal
// downgrades failures to warnings.
func (uc *releaseUseCase) preflight(ctx context.Context, req *model.ReleaseRequest) error {
	if req.Kind == model.KindTrial {
		return nil
	}

	logger := ctxlog.From(ctx)

	if req.AllowDirty {
		logger.Warn("Skipping dirty working tree check (--allow-dirty)")
	} else {
		clean, err := uc.vcs.IsClean(ctx, true)
		if err != nil {
			return err
		}
		if !clean {
			err := goerr.New("working tree has uncommitted or untracked changes",
				goerr.T(types.ErrTagPrecondition))
			if req.Rehearsal {
				logger.Warn("Precondition failed, continuing rehearsal", "error", err)
			} else {
				return err
			}
		}
	}

	upToDate, err := uc.vcs.IsUpToDate(ctx)
	if err != nil {
		return err
	}
	if !upToDate {
		err := goerr.New("local branch is behind its remote tracking branch",
			goerr.T(types.ErrTagPrecondition))
		if req.Rehearsal {
			ctxlog.From(ctx).Warn("Precondition failed, continuing rehearsal", "error", err)
			return nil
		}
		return err
	}

	return nil
}

// resolveVersions reads the version file and computes the bump target. A
// rehearsal run synthesizes 0.0.0 when the file is missing or malformed so the
// rest of the pipeline can still be exercised.
func (uc *releaseUseCase) resolveVersions(ctx context.Context, rc *model.ReleaseContext, req *model.ReleaseRequest) error {
	logger := ctxlog.From(ctx)
	path := filepath.Join(rc.RepoRoot, uc.cfg.VersionFile)

	current, err := readVersionFile(path)
	if err != nil {
		if !req.Rehearsal {
			return err
		}
		logger.Warn("Version file unusable, rehearsing with 0.0.0", "error", err, "path", path)
		current = &model.Version{}
	}

	rc.Current = current
	rc.Target = current.Bump(req.Kind)

	logger.Info("Computed target version",
		"current", rc.Current.String(),
		"target", rc.Target.String(),
	)
	return nil
}

func readVersionFile(path string) (*model.Version, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read version file",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", path))
	}
	return model.ParseVersion(strings.TrimSpace(string(raw)))
}

// checkDuplicate rejects a target version whose tag already exists, before any
// destructive step runs. Trial runs reuse the current version and are exempt.
func (uc *releaseUseCase) checkDuplicate(ctx context.Context, rc *model.ReleaseContext, req *model.ReleaseRequest) error {
	if req.Kind == model.KindTrial {
		return nil
	}

	exists, err := uc.vcs.TagExists(ctx, rc.Target.String())
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	dup := goerr.New("target version is already tagged",
		goerr.T(types.ErrTagDuplicateVersion), goerr.V("tag", rc.Target.String()))
	if req.Rehearsal {
		ctxlog.From(ctx).Warn("Duplicate version, continuing rehearsal", "error", dup)
		return nil
	}
	return dup
}

// writeChangelog drafts release notes from the commits introduced since the
// current version's tag (the whole history when that tag never existed),
// writes them to the changelog file, and suspends to the interactive editor.
func (uc *releaseUseCase) writeChangelog(ctx context.Context, rc *model.ReleaseContext, req *model.ReleaseRequest) error {
	logger := ctxlog.From(ctx)

	sinceRef := ""
	if tagged, err := uc.vcs.TagExists(ctx, rc.Current.String()); err != nil {
		return err
	} else if tagged {
		sinceRef = rc.Current.String()
	}

	entries, err := uc.vcs.LogSince(ctx, sinceRef)
	if err != nil {
		return err
	}
	rc.Changelog = entries

	logger.Info("Drafted changelog", "entries", len(entries), "since", sinceRef)

	path := filepath.Join(rc.RepoRoot, uc.cfg.ChangelogFile)
	draft := draftChangelog(rc.Target, entries)

	if req.Rehearsal {
		logger.Warn("Rehearsal: would write changelog and open editor", "path", path)
		return nil
	}

	if err := os.WriteFile(path, []byte(draft), 0644); err != nil {
		return goerr.Wrap(err, "failed to write changelog",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", path))
	}

	// Suspends the run until the operator closes the editor. The pause can be
	// long; the pre-push checks re-run later to catch races it introduces.
	return uc.editor.Edit(ctx, path)
}

// persistVersion overwrites the version file with the target version.
func (uc *releaseUseCase) persistVersion(ctx context.Context, rc *model.ReleaseContext, req *model.ReleaseRequest) error {
	path := filepath.Join(rc.RepoRoot, uc.cfg.VersionFile)

	if req.Rehearsal {
		ctxlog.From(ctx).Warn("Rehearsal: would write version file",
			"path", path, "version", rc.Target.String())
		return nil
	}

	if err := os.WriteFile(path, []byte(rc.Target.String()+"\n"), 0644); err != nil {
		return goerr.Wrap(err, "failed to write version file",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", path))
	}
	return nil
}

// commitRelease stages the version file and changelog and commits with a
// message derived from the (possibly operator-edited) changelog. The tree must
// be clean again afterwards; a commit hooks half-captured is an abort.
func (uc *releaseUseCase) commitRelease(ctx context.Context, rc *model.ReleaseContext, req *model.ReleaseRequest) error {
	logger := ctxlog.From(ctx)

	message := "Release " + rc.Target.String()
	if !req.Rehearsal {
		raw, err := os.ReadFile(filepath.Join(rc.RepoRoot, uc.cfg.ChangelogFile))
		if err != nil {
			return goerr.Wrap(err, "failed to read changelog for commit message",
				goerr.T(types.ErrTagIOFailure))
		}
		message = commitMessage(string(raw))
	}

	if req.Rehearsal {
		logger.Warn("Rehearsal: would commit version bump", "message", message)
		return nil
	}

	if err := uc.vcs.Add(ctx, uc.cfg.VersionFile, uc.cfg.ChangelogFile); err != nil {
		return err
	}
	if err := uc.vcs.Commit(ctx, message); err != nil {
		return err
	}

	clean, err := uc.vcs.IsClean(ctx, true)
	if err != nil {
		return err
	}
	if !clean {
		return goerr.New("working tree is dirty after commit, hooks may have modified files",
			goerr.T(types.ErrTagVCSFailure))
	}

	logger.Info("Committed version bump", "version", rc.Target.String())
	return nil
}

// tagRelease creates the annotated release tag. The duplicate check re-runs
// here to close the race window since preflight.
func (uc *releaseUseCase) tagRelease(ctx context.Context, rc *model.ReleaseContext, req *model.ReleaseRequest) error {
	tag := rc.Target.String()

	if req.Rehearsal {
		ctxlog.From(ctx).Warn("Rehearsal: would create annotated tag", "tag", tag)
		return nil
	}

	exists, err := uc.vcs.TagExists(ctx, tag)
	if err != nil {
		return err
	}
	if exists {
		return goerr.New("tag appeared since preflight",
			goerr.T(types.ErrTagDuplicateVersion), goerr.V("tag", tag))
	}

	if err := uc.vcs.CreateTag(ctx, tag, "Release "+tag); err != nil {
		return err
	}

	ctxlog.From(ctx).Info("Created release tag", "tag", tag)
	return nil
}

// pushRelease re-verifies remote synchronization (the editor pause may have
// been long) and pushes commits and tags in one operation.
func (uc *releaseUseCase) pushRelease(ctx context.Context, rc *model.ReleaseContext, req *model.ReleaseRequest) error {
	logger := ctxlog.From(ctx)

	if req.Rehearsal {
		logger.Warn("Rehearsal: would push commits and tags")
		return nil
	}

	clean, err := uc.vcs.IsClean(ctx, true)
	if err != nil {
		return err
	}
	if !clean {
		return goerr.New("working tree changed during the release, refusing to push",
			goerr.T(types.ErrTagPrecondition))
	}

	upToDate, err := uc.vcs.IsUpToDate(ctx)
	if err != nil {
		return err
	}
	if !upToDate {
		return goerr.New("remote moved during the release, refusing to push",
			goerr.T(types.ErrTagPrecondition))
	}

	if err := uc.vcs.Push(ctx, true); err != nil {
		return err
	}

	logger.Info("Pushed release", "version", rc.Target.String())
	return nil
}

// install copies the built archive into the local RaftModLoader mods
// directory, creating it if absent.
func (uc *releaseUseCase) install(ctx context.Context, rc *model.ReleaseContext, req *model.ReleaseRequest) (string, error) {
	if err := os.MkdirAll(uc.cfg.InstallDir, 0755); err != nil {
		return "", goerr.Wrap(err, "failed to create mod install directory",
			goerr.T(types.ErrTagIOFailure), goerr.V("dir", uc.cfg.InstallDir))
	}

	dest := filepath.Join(uc.cfg.InstallDir, req.ArchiveName())
	if err := copyFile(rc.Archive, dest); err != nil {
		return "", err
	}

	return dest, nil
}
