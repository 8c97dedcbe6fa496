package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/threadloom/internal/config"
)

// InitCommand writes a starter configuration file.
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a sample configuration file",
		Action: func(c *cli.Context) error {
			path := c.String("config")
			if path == "" {
				path = "threadloom.toml"
			}
			if err := config.InitConfig(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}
