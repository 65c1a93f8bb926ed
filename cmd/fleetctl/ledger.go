package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (c *cli) newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the transition ledger",
	}
	cmd.AddCommand(c.newLedgerHistoryCmd(), c.newLedgerCanRevertCmd())
	return cmd
}

func (c *cli) newLedgerHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <process> <entity-id>",
		Short: "Print every recorded transition of an entity, oldest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			process, err := parseProcess(args[0])
			if err != nil {
				return err
			}
			id, err := parseID("entity id", args[1])
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			hist, err := a.Services.Ledger.History(cmd.Context(), process, id)
			if err != nil {
				return err
			}
			return c.printJSON(hist)
		},
	}
}

func (c *cli) newLedgerCanRevertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "can-revert <process> <entity-id>...",
		Short: "Report whether the latest transition of each entity can be reverted",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			process, err := parseProcess(args[0])
			if err != nil {
				return err
			}
			ids := make([]uuid.UUID, 0, len(args)-1)
			for _, raw := range args[1:] {
				id, err := parseID("entity id", raw)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			if len(ids) == 1 {
				check, err := a.Services.Ledger.CanRevert(cmd.Context(), process, ids[0])
				if err != nil {
					return err
				}
				return c.printJSON(check)
			}
			checks, err := a.Services.Ledger.CanRevertMany(cmd.Context(), process, ids)
			if err != nil {
				return err
			}
			return c.printJSON(checks)
		},
	}
}
