package usecase

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/model"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// stage rebuilds the staging directory from scratch and assembles the release
// payload in it: the mod source and manifest with the version token rewritten,
// plus the asset files verbatim. The wipe includes ignored files so the
// payload is byte-for-byte reproducible between runs.
func (uc *releaseUseCase) stage(ctx context.Context, rc *model.ReleaseContext) error {
	logger := ctxlog.From(ctx)

	if err := uc.vcs.Clean(ctx, rc.StagingDir, true); err != nil {
		return err
	}
	if err := os.MkdirAll(rc.StagingDir, 0755); err != nil {
		return goerr.Wrap(err, "failed to create staging directory",
			goerr.T(types.ErrTagIOFailure), goerr.V("dir", rc.StagingDir))
	}

	version := rc.Target.String()

	// Source and manifest are text templates carrying the version token; the
	// images are copied untouched.
	for _, rel := range []string{uc.cfg.SourceFile, uc.cfg.ManifestFile} {
		src := filepath.Join(rc.RepoRoot, rel)
		dest := filepath.Join(rc.StagingDir, filepath.Base(rel))
		if err := stageTextFile(src, dest, uc.cfg.VersionToken, version); err != nil {
			return err
		}
	}
	for _, rel := range uc.cfg.AssetFiles {
		src := filepath.Join(rc.RepoRoot, rel)
		if err := copyFile(src, filepath.Join(rc.StagingDir, filepath.Base(rel))); err != nil {
			return err
		}
	}

	logger.Info("Staged release payload",
		"dir", rc.StagingDir,
		"files", 2+len(uc.cfg.AssetFiles),
		"version", version,
	)
	return nil
}

// stageTextFile copies src to dest replacing every occurrence of token with
// version. The token is a fixed literal, matched case-sensitively.
func stageTextFile(src, dest, token, version string) error {
	raw, err := os.ReadFile(src)
	if err != nil {
		return goerr.Wrap(err, "failed to read staged text file",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", src))
	}

	text := strings.ReplaceAll(string(raw), token, version)
	if err := os.WriteFile(dest, []byte(text), 0644); err != nil {
		return goerr.Wrap(err, "failed to write staged text file",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", dest))
	}
	return nil
}

// copyFile copies src to dest preserving the source file mode.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return goerr.Wrap(err, "failed to open file for copy",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", src))
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return goerr.Wrap(err, "failed to stat file for copy",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", src))
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return goerr.Wrap(err, "failed to create copy destination",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", dest))
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return goerr.Wrap(err, "failed to copy file content",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", dest))
	}
	return nil
}

// buildArchive compresses the staged files into the .rmod archive. The
// container is a standard ZIP; the extension keeps it from colliding with
// generic zip tooling. Ignore-list entries are base-name globs.
func (uc *releaseUseCase) buildArchive(ctx context.Context, rc *model.ReleaseContext, req *model.ReleaseRequest) error {
	outPath := filepath.Join(rc.StagingDir, req.ArchiveName())

	out, err := os.Create(outPath)
	if err != nil {
		return goerr.Wrap(err, "failed to create archive",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", outPath))
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(rc.StagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path == outPath {
			return nil
		}

		name, err := filepath.Rel(rc.StagingDir, path)
		if err != nil {
			return err
		}
		if uc.archiveIgnored(filepath.Base(path)) {
			return nil
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		w, err := zw.Create(filepath.ToSlash(name))
		if err != nil {
			return err
		}
		_, err = io.Copy(w, in)
		return err
	})
	if walkErr != nil {
		return goerr.Wrap(walkErr, "failed to add staged files to archive",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", outPath))
	}

	if err := zw.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", outPath))
	}

	rc.Archive = outPath
	ctxlog.From(ctx).Info("Built release archive", "path", outPath)
	return nil
}

func (uc *releaseUseCase) archiveIgnored(base string) bool {
	for _, pattern := range uc.cfg.ArchiveIgnore {
		if ok, err := filepath.Match(pattern, base); err == nil && ok {
			return true
		}
	}
	return false
}
