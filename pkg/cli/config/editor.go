package config

import "github.com/urfave/cli/v3"

// Editor holds changelog editor configuration
type Editor struct {
	Command string
}

// Flags returns CLI flags for editor configuration. An empty command defers to
// git's configured default editor (git var GIT_EDITOR).
func (c *Editor) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "editor",
			Usage:       "Editor command for changelog review (default: git's configured editor)",
			Destination: &c.Command,
			Sources:     cli.EnvVars("PREPARE_RELEASE_EDITOR"),
		},
	}
}
