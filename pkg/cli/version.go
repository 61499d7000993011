package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/cli/config"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/model"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/types"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/infra/git"
	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdVersion() *cli.Command {
	var projectCfg config.Project

	return &cli.Command{
		Name:  "version",
		Usage: "Show the current mod version and the available bumps",
		Flags: projectCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, modName, err := projectCfg.Load()
			if err != nil {
				return err
			}

			vcs := git.NewClient(".")
			root, err := vcs.ResolveRoot(ctx)
			if err != nil {
				return err
			}

			path := filepath.Join(root, cfg.VersionFile)
			raw, err := os.ReadFile(path)
			if err != nil {
				return goerr.Wrap(err, "failed to read version file",
					goerr.T(types.ErrTagIOFailure), goerr.V("path", path))
			}

			current, err := model.ParseVersion(strings.TrimSpace(string(raw)))
			if err != nil {
				return err
			}

			color.New(color.FgGreen).Printf("%s %s\n", modName, current.String())
			for _, kind := range []model.ReleaseKind{model.KindPatch, model.KindMinor, model.KindMajor} {
				color.New(color.FgHiBlack).Printf("  %s: %s\n", kind, current.Bump(kind).String())
			}
			return nil
		},
	}
}
