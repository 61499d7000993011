package usecase_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/model"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/types"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

// mockVCS is an in-memory VCSClient. Clean behaves like git clean on a fully
// untracked directory: it removes everything under the path.
type mockVCS struct {
	root     string
	clean    bool
	upToDate bool
	tags     map[string]bool
	history  []string

	commitErr error

	// Per-call overrides, consumed in order, for simulating state that
	// changes mid-run (hooks dirtying the tree, the remote moving).
	cleanResults    []bool
	upToDateResults []bool

	// raceTag is reported as existing once a commit has landed, simulating
	// a tag that appears between the preflight check and tagging.
	raceTag string

	// commitLeavesDirty simulates a commit hook modifying files.
	commitLeavesDirty bool

	cleanCalls  []string
	logRefs     []string
	addCalls    [][]string
	commits     []string
	createdTags []string
	pushCalls   int
}

func newMockVCS(root string) *mockVCS {
	return &mockVCS{
		root:     root,
		clean:    true,
		upToDate: true,
		tags:     map[string]bool{},
	}
}

func (m *mockVCS) ResolveRoot(ctx context.Context) (string, error) { return m.root, nil }

func (m *mockVCS) IsClean(ctx context.Context, ignoreSubmodules bool) (bool, error) {
	if len(m.cleanResults) > 0 {
		result := m.cleanResults[0]
		m.cleanResults = m.cleanResults[1:]
		return result, nil
	}
	return m.clean, nil
}

func (m *mockVCS) Clean(ctx context.Context, path string, includeIgnored bool) error {
	m.cleanCalls = append(m.cleanCalls, path)
	return os.RemoveAll(path)
}

func (m *mockVCS) IsUpToDate(ctx context.Context) (bool, error) {
	if len(m.upToDateResults) > 0 {
		result := m.upToDateResults[0]
		m.upToDateResults = m.upToDateResults[1:]
		return result, nil
	}
	return m.upToDate, nil
}

func (m *mockVCS) LogSince(ctx context.Context, ref string) ([]string, error) {
	m.logRefs = append(m.logRefs, ref)
	return m.history, nil
}

func (m *mockVCS) TagExists(ctx context.Context, name string) (bool, error) {
	if name == m.raceTag && len(m.commits) > 0 {
		return true, nil
	}
	return m.tags[name], nil
}

func (m *mockVCS) CreateTag(ctx context.Context, name, message string) error {
	m.createdTags = append(m.createdTags, name)
	m.tags[name] = true
	return nil
}

func (m *mockVCS) Add(ctx context.Context, paths ...string) error {
	m.addCalls = append(m.addCalls, paths)
	return nil
}

func (m *mockVCS) Commit(ctx context.Context, message string) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.commits = append(m.commits, message)
	m.clean = !m.commitLeavesDirty
	return nil
}

func (m *mockVCS) Push(ctx context.Context, withTags bool) error {
	m.pushCalls++
	return nil
}

// mockEditor records edited paths and optionally rewrites the draft, standing
// in for the operator.
type mockEditor struct {
	paths   []string
	rewrite string
	err     error
}

func (m *mockEditor) Edit(ctx context.Context, path string) error {
	m.paths = append(m.paths, path)
	if m.err != nil {
		return m.err
	}
	if m.rewrite != "" {
		return os.WriteFile(path, []byte(m.rewrite), 0644)
	}
	return nil
}

// newModRepo lays out a minimal mod repository in a temp dir.
func newModRepo(t *testing.T, version string) (string, *usecase.Config) {
	t.Helper()
	root := t.TempDir()

	gt.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	files := map[string]string{
		"VERSION":      version + "\n",
		"src/MyMod.cs": "// MyMod @VERSION@\nclass MyMod {}\n",
		"modinfo.json": `{"name": "My Mod", "version": "@VERSION@"}`,
		"banner.jpg":   "jpegdata",
		"icon.png":     "pngdata",
		"notes.tmp":    "scratch",
	}
	for name, content := range files {
		gt.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0644))
	}

	cfg := &usecase.Config{
		SourceFile:    "src/MyMod.cs",
		ManifestFile:  "modinfo.json",
		AssetFiles:    []string{"banner.jpg", "icon.png"},
		VersionFile:   "VERSION",
		VersionToken:  "@VERSION@",
		StagingDir:    "release",
		ChangelogFile: "CHANGELOG.md",
		ArchiveIgnore: []string{"*.tmp"},
		InstallDir:    filepath.Join(root, "mods"),
	}
	return root, cfg
}

func mustRequest(t *testing.T, kind model.ReleaseKind, allowDirty, rehearsal bool) *model.ReleaseRequest {
	t.Helper()
	req, err := model.NewReleaseRequest("My Mod", kind, allowDirty, rehearsal)
	gt.NoError(t, err)
	return req
}

func TestPrepareRelease_Patch(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.tags["1.4.2"] = true
	vcs.history = []string{"Fix sail physics", "Add config option"}
	editor := &mockEditor{}

	uc := usecase.NewRelease(vcs, editor, cfg)
	result, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.NoError(t, err)

	gt.Value(t, result.Version).Equal("1.4.3")
	gt.Value(t, result.Pushed).Equal(true)
	gt.Value(t, result.Installed).Equal("")

	// The version file now holds the target version.
	raw, err := os.ReadFile(filepath.Join(root, "VERSION"))
	gt.NoError(t, err)
	gt.String(t, string(raw)).Contains("1.4.3")

	// Commits were enumerated since the pre-bump tag.
	gt.Value(t, vcs.logRefs).Equal([]string{"1.4.2"})

	// The changelog draft went through the editor and fed the commit message.
	gt.Value(t, len(editor.paths)).Equal(1)
	changelog, err := os.ReadFile(filepath.Join(root, "CHANGELOG.md"))
	gt.NoError(t, err)
	gt.String(t, string(changelog)).Contains("# Release 1.4.3")
	gt.String(t, string(changelog)).Contains("- Fix sail physics")

	gt.Value(t, len(vcs.commits)).Equal(1)
	gt.String(t, vcs.commits[0]).Contains("Release 1.4.3")
	gt.Value(t, vcs.addCalls).Equal([][]string{{"VERSION", "CHANGELOG.md"}})

	gt.Value(t, vcs.createdTags).Equal([]string{"1.4.3"})
	gt.Value(t, vcs.pushCalls).Equal(1)

	// Staged archive exists and honors the ignore list and the token rewrite.
	zr, err := zip.OpenReader(result.Archive)
	gt.NoError(t, err)
	defer zr.Close()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	gt.Value(t, names["MyMod.cs"]).Equal(true)
	gt.Value(t, names["modinfo.json"]).Equal(true)
	gt.Value(t, names["banner.jpg"]).Equal(true)
	gt.Value(t, names["icon.png"]).Equal(true)
	gt.Value(t, names["notes.tmp"]).Equal(false)
	gt.Value(t, names["MyMod.rmod"]).Equal(false)

	staged, err := os.ReadFile(filepath.Join(root, "release", "MyMod.cs"))
	gt.NoError(t, err)
	gt.String(t, string(staged)).Contains("1.4.3")
}

func TestPrepareRelease_EditedChangelogBecomesCommitMessage(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.history = []string{"whatever"}
	editor := &mockEditor{rewrite: "# Release 1.4.3\n\n- Curated entry\n"}

	uc := usecase.NewRelease(vcs, editor, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.NoError(t, err)

	gt.Value(t, len(vcs.commits)).Equal(1)
	gt.Value(t, vcs.commits[0]).Equal("Release 1.4.3\n\n- Curated entry")
	gt.Value(t, len(editor.paths)).Equal(1)
	gt.Value(t, editor.paths[0]).Equal(filepath.Join(root, "CHANGELOG.md"))
}

func TestPrepareRelease_FullHistoryWhenCurrentUntagged(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.history = []string{"Initial commit"}

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.NoError(t, err)

	// No 1.4.2 tag exists, so the whole history is enumerated.
	gt.Value(t, vcs.logRefs).Equal([]string{""})
	_, statErr := os.Stat(filepath.Join(root, "release", "MyMod.cs"))
	gt.NoError(t, statErr)
}

func TestPrepareRelease_Trial(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.clean = false // trial runs skip preflight entirely
	editor := &mockEditor{}

	uc := usecase.NewRelease(vcs, editor, cfg)
	result, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindTrial, false, false))
	gt.NoError(t, err)

	// Trial reuses the current version exactly.
	gt.Value(t, result.Version).Equal("1.4.2")
	gt.Value(t, result.Pushed).Equal(false)

	// The archive is installed into the mods directory.
	gt.Value(t, result.Installed).Equal(filepath.Join(root, "mods", "MyMod.rmod"))
	_, err = os.Stat(result.Installed)
	gt.NoError(t, err)

	// No history mutation of any kind.
	gt.Value(t, len(vcs.addCalls)).Equal(0)
	gt.Value(t, len(vcs.commits)).Equal(0)
	gt.Value(t, len(vcs.createdTags)).Equal(0)
	gt.Value(t, vcs.pushCalls).Equal(0)
	gt.Value(t, len(editor.paths)).Equal(0)

	// The version file is untouched.
	raw, err := os.ReadFile(filepath.Join(root, "VERSION"))
	gt.NoError(t, err)
	gt.String(t, string(raw)).Contains("1.4.2")
}

func TestPrepareRelease_DuplicateVersion(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.tags["1.4.3"] = true

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.ErrTagDuplicateVersion)).Equal(true)

	// The abort happened before any staging or commit.
	gt.Value(t, len(vcs.cleanCalls)).Equal(0)
	gt.Value(t, len(vcs.commits)).Equal(0)
	_, statErr := os.Stat(filepath.Join(root, "release"))
	gt.Value(t, os.IsNotExist(statErr)).Equal(true)
}

func TestPrepareRelease_DirtyTree(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.clean = false

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.ErrTagPrecondition)).Equal(true)

	// The release directory was never touched.
	gt.Value(t, len(vcs.cleanCalls)).Equal(0)
	_, statErr := os.Stat(filepath.Join(root, "release"))
	gt.Value(t, os.IsNotExist(statErr)).Equal(true)
}

func TestPrepareRelease_AllowDirty(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.clean = false

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, true, false))
	gt.NoError(t, err)
	gt.Value(t, len(vcs.commits)).Equal(1)

	raw, err := os.ReadFile(filepath.Join(root, "VERSION"))
	gt.NoError(t, err)
	gt.String(t, string(raw)).Contains("1.4.3")
}

func TestPrepareRelease_BehindRemote(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.upToDate = false

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.ErrTagPrecondition)).Equal(true)
	gt.Value(t, vcs.pushCalls).Equal(0)
	_, statErr := os.Stat(filepath.Join(root, "release"))
	gt.Value(t, os.IsNotExist(statErr)).Equal(true)
}

func TestPrepareRelease_CommitFailureStopsTagAndPush(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.commitErr = goerr.New("commit rejected", goerr.T(types.ErrTagVCSFailure))

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.ErrTagVCSFailure)).Equal(true)

	gt.Value(t, len(vcs.createdTags)).Equal(0)
	gt.Value(t, vcs.pushCalls).Equal(0)

	// The version file was already bumped; the failure is surfaced for the
	// operator to resolve, not rolled back.
	raw, err := os.ReadFile(filepath.Join(root, "VERSION"))
	gt.NoError(t, err)
	gt.String(t, string(raw)).Contains("1.4.3")
}

func TestPrepareRelease_HookDirtiesTreeAfterCommit(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	vcs.commitLeavesDirty = true

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.ErrTagVCSFailure)).Equal(true)

	// The commit landed but the half-captured state stops everything after.
	gt.Value(t, len(vcs.commits)).Equal(1)
	gt.Value(t, len(vcs.createdTags)).Equal(0)
	gt.Value(t, vcs.pushCalls).Equal(0)
}

func TestPrepareRelease_TagAppearsDuringRelease(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	// The target tag shows up only after the commit, past the preflight
	// duplicate check.
	vcs := newMockVCS(root)
	vcs.raceTag = "1.4.3"

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.ErrTagDuplicateVersion)).Equal(true)

	gt.Value(t, len(vcs.commits)).Equal(1)
	gt.Value(t, len(vcs.createdTags)).Equal(0)
	gt.Value(t, vcs.pushCalls).Equal(0)
}

func TestPrepareRelease_TreeChangesBeforePush(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	// Clean at preflight and after the commit, dirty at the pre-push
	// re-verification (something touched the tree during the editor pause).
	vcs := newMockVCS(root)
	vcs.cleanResults = []bool{true, true, false}

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.ErrTagPrecondition)).Equal(true)

	// Commit and tag are durable; only the push is refused.
	gt.Value(t, len(vcs.commits)).Equal(1)
	gt.Value(t, vcs.createdTags).Equal([]string{"1.4.3"})
	gt.Value(t, vcs.pushCalls).Equal(0)
}

func TestPrepareRelease_RemoteMovesBeforePush(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	// In sync at preflight, behind at the pre-push re-verification.
	vcs := newMockVCS(root)
	vcs.upToDateResults = []bool{true, false}

	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.ErrTagPrecondition)).Equal(true)
	gt.Value(t, vcs.pushCalls).Equal(0)
}

func TestPrepareRelease_EditorAbort(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	vcs := newMockVCS(root)
	editor := &mockEditor{err: goerr.New("editor exited non-zero", goerr.T(types.ErrTagEditorAborted))}

	uc := usecase.NewRelease(vcs, editor, cfg)
	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, false))
	gt.Error(t, err)
	gt.Value(t, goerr.HasTag(err, types.ErrTagEditorAborted)).Equal(true)

	// No side effects past the changelog draft.
	gt.Value(t, len(vcs.commits)).Equal(0)
	gt.Value(t, len(vcs.createdTags)).Equal(0)
	gt.Value(t, vcs.pushCalls).Equal(0)

	raw, err := os.ReadFile(filepath.Join(root, "VERSION"))
	gt.NoError(t, err)
	gt.String(t, string(raw)).Contains("1.4.2")
}

func TestPrepareRelease_Rehearsal(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	// Pile up every failure the rehearsal should shrug off.
	gt.NoError(t, os.Remove(filepath.Join(root, "VERSION")))
	vcs := newMockVCS(root)
	vcs.clean = false
	vcs.tags["0.0.1"] = true
	editor := &mockEditor{}

	uc := usecase.NewRelease(vcs, editor, cfg)
	result, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindPatch, false, true))
	gt.NoError(t, err)

	// Missing version file synthesized 0.0.0, bumped to 0.0.1.
	gt.Value(t, result.Version).Equal("0.0.1")
	gt.Value(t, result.Pushed).Equal(false)

	// Nothing was mutated: no editor, no version file, no history.
	gt.Value(t, len(editor.paths)).Equal(0)
	gt.Value(t, len(vcs.addCalls)).Equal(0)
	gt.Value(t, len(vcs.commits)).Equal(0)
	gt.Value(t, len(vcs.createdTags)).Equal(0)
	gt.Value(t, vcs.pushCalls).Equal(0)

	_, statErr := os.Stat(filepath.Join(root, "VERSION"))
	gt.Value(t, os.IsNotExist(statErr)).Equal(true)
	_, statErr = os.Stat(filepath.Join(root, "CHANGELOG.md"))
	gt.Value(t, os.IsNotExist(statErr)).Equal(true)
}

func TestPrepareRelease_StagingRebuiltEveryRun(t *testing.T) {
	ctx := context.Background()
	root, cfg := newModRepo(t, "1.4.2")

	// Leftovers from an earlier, interrupted run.
	gt.NoError(t, os.MkdirAll(filepath.Join(root, "release"), 0755))
	gt.NoError(t, os.WriteFile(filepath.Join(root, "release", "stale.bin"), []byte("old"), 0644))

	vcs := newMockVCS(root)
	uc := usecase.NewRelease(vcs, &mockEditor{}, cfg)

	_, err := uc.PrepareRelease(ctx, mustRequest(t, model.KindTrial, false, false))
	gt.NoError(t, err)

	gt.Value(t, vcs.cleanCalls).Equal([]string{filepath.Join(root, "release")})
	_, statErr := os.Stat(filepath.Join(root, "release", "stale.bin"))
	gt.Value(t, os.IsNotExist(statErr)).Equal(true)
}
