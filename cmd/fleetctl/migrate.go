package main

import (
	"github.com/spf13/cobra"
)

func (c *cli) newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema and the workflow uniqueness indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			if err := a.Migrate(); err != nil {
				return err
			}
			return c.printJSON(map[string]any{
				"migrated": true,
				"driver":   a.Cfg.Database.Driver,
			})
		},
	}
}
