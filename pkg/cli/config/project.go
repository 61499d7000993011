package config

import (
	"os"
	"path/filepath"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/types"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// Project holds the mod project configuration. Values come from
// prepare-release.toml and can be overridden per-flag; flags win.
type Project struct {
	ConfigPath string

	ModName      string
	Source       string
	Manifest     string
	Assets       []string
	VersionFile  string
	VersionToken string

	StagingDir    string
	Changelog     string
	ArchiveIgnore []string
	InstallDir    string
}

// projectFile mirrors the prepare-release.toml layout.
type projectFile struct {
	Module struct {
		Name         string   `toml:"name"`
		Source       string   `toml:"source"`
		Manifest     string   `toml:"manifest"`
		Assets       []string `toml:"assets"`
		VersionFile  string   `toml:"version_file"`
		VersionToken string   `toml:"version_token"`
	} `toml:"module"`
	Release struct {
		StagingDir    string   `toml:"staging_dir"`
		Changelog     string   `toml:"changelog"`
		ArchiveIgnore []string `toml:"archive_ignore"`
		InstallDir    string   `toml:"install_dir"`
	} `toml:"release"`
}

// Flags returns CLI flags for project configuration
func (c *Project) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "Path to the project config file",
			Value:       "prepare-release.toml",
			Destination: &c.ConfigPath,
			Sources:     cli.EnvVars("PREPARE_RELEASE_CONFIG"),
		},
		&cli.StringFlag{
			Name:        "mod-name",
			Usage:       "Mod name (overrides [module].name)",
			Destination: &c.ModName,
			Sources:     cli.EnvVars("PREPARE_RELEASE_MOD_NAME"),
		},
		&cli.StringFlag{
			Name:        "source",
			Usage:       "Mod source file, relative to the repository root",
			Destination: &c.Source,
		},
		&cli.StringFlag{
			Name:        "manifest",
			Usage:       "Mod manifest file (modinfo.json)",
			Destination: &c.Manifest,
		},
		&cli.StringSliceFlag{
			Name:        "asset",
			Usage:       "Asset file copied into the release verbatim (repeatable)",
			Destination: &c.Assets,
		},
		&cli.StringFlag{
			Name:        "install-dir",
			Usage:       "RaftModLoader mods directory for trial installs",
			Destination: &c.InstallDir,
			Sources:     cli.EnvVars("PREPARE_RELEASE_INSTALL_DIR"),
		},
	}
}

// Load merges the config file under the flag overrides and fills the
// remaining defaults. The file is optional as long as the required values
// arrive via flags.
func (c *Project) Load() (*usecase.Config, string, error) {
	var file projectFile
	if raw, err := os.ReadFile(c.ConfigPath); err == nil {
		if err := toml.Unmarshal(raw, &file); err != nil {
			return nil, "", goerr.Wrap(err, "failed to parse project config",
				goerr.T(types.ErrTagInvalidInput), goerr.V("path", c.ConfigPath))
		}
	} else if !os.IsNotExist(err) {
		return nil, "", goerr.Wrap(err, "failed to read project config",
			goerr.T(types.ErrTagIOFailure), goerr.V("path", c.ConfigPath))
	}

	modName := firstOf(c.ModName, file.Module.Name)
	if modName == "" {
		return nil, "", goerr.New("mod name is not configured",
			goerr.T(types.ErrTagInvalidInput), goerr.V("config", c.ConfigPath))
	}

	source := firstOf(c.Source, file.Module.Source)
	if source == "" {
		return nil, "", goerr.New("mod source file is not configured",
			goerr.T(types.ErrTagInvalidInput), goerr.V("config", c.ConfigPath))
	}

	assets := c.Assets
	if len(assets) == 0 {
		assets = file.Module.Assets
	}

	ignore := c.ArchiveIgnore
	if len(ignore) == 0 {
		ignore = file.Release.ArchiveIgnore
	}

	installDir := firstOf(c.InstallDir, file.Release.InstallDir)
	if installDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, "", goerr.Wrap(err, "failed to resolve home directory for install dir",
				goerr.T(types.ErrTagIOFailure))
		}
		installDir = filepath.Join(home, "RaftModLoader", "mods")
	}

	cfg := &usecase.Config{
		SourceFile:    source,
		ManifestFile:  firstOf(c.Manifest, file.Module.Manifest, "modinfo.json"),
		AssetFiles:    assets,
		VersionFile:   firstOf(c.VersionFile, file.Module.VersionFile, "VERSION"),
		VersionToken:  firstOf(c.VersionToken, file.Module.VersionToken, "@VERSION@"),
		StagingDir:    firstOf(c.StagingDir, file.Release.StagingDir, "release"),
		ChangelogFile: firstOf(c.Changelog, file.Release.Changelog, "CHANGELOG.md"),
		ArchiveIgnore: ignore,
		InstallDir:    installDir,
	}

	return cfg, modName, nil
}

// firstOf returns the first non-empty value.
func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
