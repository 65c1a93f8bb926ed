package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	"github.com/yungbote/railfleet-backend/internal/services"
)

func (c *cli) newTriageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "triage",
		Short: "Triage queue",
	}
	cmd.AddCommand(c.newTriageCreateCmd(), c.newTriageResolveCmd(), c.newTriageListCmd())
	return cmd
}

func (c *cli) newTriageCreateCmd() *cobra.Command {
	var (
		carID, carNumber, reason, notes, source string
		priority                                int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Queue a car for a disposition decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			car, err := parseID("car id", carID)
			if err != nil {
				return err
			}
			sourceID, err := parseOptionalID("source", source)
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			entry, err := a.Services.Triage.CreateEntry(cmd.Context(), services.CreateTriageRequest{
				CarID:             car,
				CarNumber:         carNumber,
				Reason:            reason,
				Priority:          priority,
				Notes:             notes,
				SourceReferenceID: sourceID,
				Actor:             c.actor(),
			})
			if err != nil {
				return err
			}
			return c.printJSON(entry)
		},
	}
	cmd.Flags().StringVar(&carID, "car-id", "", "Car id")
	cmd.Flags().StringVar(&carNumber, "car", "", "Car number")
	cmd.Flags().StringVar(&reason, "reason", "", "Reason (customer_return, lease_expiry, bad_order, idle_too_long, manual)")
	cmd.Flags().IntVar(&priority, "priority", 0, "Priority 1 (urgent) to 5; 0 uses the default")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&source, "source", "", "Id of the record that raised the entry")
	_ = cmd.MarkFlagRequired("car-id")
	_ = cmd.MarkFlagRequired("car")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func (c *cli) newTriageResolveCmd() *cobra.Command {
	var resolution, notes, reference string
	cmd := &cobra.Command{
		Use:   "resolve <entry-id>",
		Short: "Resolve an open triage entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("triage entry id", args[0])
			if err != nil {
				return err
			}
			ref, err := parseOptionalID("reference", reference)
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			entry, err := a.Services.Triage.Resolve(cmd.Context(), services.ResolveTriageRequest{
				EntryID:               id,
				Resolution:            resolution,
				Notes:                 notes,
				ResolutionReferenceID: ref,
				Actor:                 c.actor(),
			})
			if err != nil {
				return err
			}
			return c.printJSON(entry)
		},
	}
	cmd.Flags().StringVar(&resolution, "resolution", "", "Disposition tag, e.g. assigned, released, re_leased, scrapped, dismissed")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	cmd.Flags().StringVar(&reference, "reference", "", "Id of the record created by the resolution")
	_ = cmd.MarkFlagRequired("resolution")
	return cmd
}

func (c *cli) newTriageListCmd() *cobra.Command {
	var (
		state, reason, carNumber string
		limit                    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List triage entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			rows, err := a.Services.Triage.List(cmd.Context(), repos.TriageFilter{
				State:     state,
				Reason:    reason,
				CarNumber: carNumber,
				Limit:     limit,
			})
			if err != nil {
				return err
			}
			return c.printJSON(rows)
		},
	}
	cmd.Flags().StringVar(&state, "state", "open", "open, resolved, or empty for all")
	cmd.Flags().StringVar(&reason, "reason", "", "Filter by reason")
	cmd.Flags().StringVar(&carNumber, "car", "", "Filter by car number")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows")
	return cmd
}
