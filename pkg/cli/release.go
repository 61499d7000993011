package cli

import (
	"context"

	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/cli/config"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/domain/model"
	editorinfra "github.com/dakotahawkins/Raft-Prepare-Release/pkg/infra/editor"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/infra/git"
	"github.com/dakotahawkins/Raft-Prepare-Release/pkg/usecase"
	"github.com/fatih/color"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdRelease() *cli.Command {
	var (
		projectCfg config.Project
		editorCfg  config.Editor

		kindStr    string
		allowDirty bool
		rehearsal  bool
	)

	flags := append(projectCfg.Flags(), editorCfg.Flags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:        "kind",
			Aliases:     []string{"k"},
			Usage:       "Release kind: trial, major, minor or patch",
			Required:    true,
			Destination: &kindStr,
		},
		&cli.BoolFlag{
			Name:        "allow-dirty",
			Usage:       "Skip the dirty working tree check (debug)",
			Destination: &allowDirty,
		},
		&cli.BoolFlag{
			Name:        "rehearsal",
			Usage:       "Run the full pipeline without mutating repository state",
			Destination: &rehearsal,
		},
	)

	return &cli.Command{
		Name:    "release",
		Aliases: []string{"r"},
		Usage:   "Prepare and publish a mod release",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			kind, err := model.ParseReleaseKind(kindStr)
			if err != nil {
				return err
			}

			cfg, modName, err := projectCfg.Load()
			if err != nil {
				return err
			}

			req, err := model.NewReleaseRequest(modName, kind, allowDirty, rehearsal)
			if err != nil {
				return err
			}

			ctxlog.From(ctx).Info("Preparing release",
				"mod", req.ModName,
				"kind", string(req.Kind),
			)

			uc := usecase.NewRelease(
				git.NewClient("."),
				editorinfra.New(editorCfg.Command),
				cfg,
			)

			result, err := uc.PrepareRelease(ctx, req)
			if err != nil {
				return goerr.Wrap(err, "release preparation failed")
			}

			switch {
			case result.Installed != "":
				color.New(color.FgGreen).Printf("Trial build of %s %s installed to %s\n",
					req.ModName, result.Version, result.Installed)
			case !result.Pushed:
				color.New(color.FgYellow).Printf("Rehearsal of %s %s complete, nothing was pushed\n",
					req.ModName, result.Version)
			default:
				color.New(color.FgGreen).Printf("Released %s %s\n", req.ModName, result.Version)
			}
			return nil
		},
	}
}
