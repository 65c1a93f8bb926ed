package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/railfleet-backend/internal/data/repos"
	"github.com/yungbote/railfleet-backend/internal/services"
)

func (c *cli) newReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Car release workflow",
	}
	cmd.AddCommand(
		c.newReleaseInitiateCmd(),
		c.newReleaseStepCmd("approve", "Approve an INITIATED release", true),
		c.newReleaseStepCmd("execute", "Start executing an APPROVED release", false),
		c.newReleaseStepCmd("complete", "Complete an EXECUTING release", true),
		c.newReleaseCancelCmd(),
		c.newReleaseRevertCmd(),
		c.newReleaseListCmd(),
	)
	return cmd
}

func (c *cli) newReleaseInitiateCmd() *cobra.Command {
	var (
		carNumber, riderID, releaseType string
		assignmentID, leaseTransitionID string
		notes                           string
	)
	cmd := &cobra.Command{
		Use:   "initiate",
		Short: "Open a release for a car active on a rider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rider, err := parseID("rider", riderID)
			if err != nil {
				return err
			}
			assignment, err := parseOptionalID("assignment", assignmentID)
			if err != nil {
				return err
			}
			transition, err := parseOptionalID("lease transition", leaseTransitionID)
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			rel, err := a.Services.Releases.Initiate(cmd.Context(), services.InitiateReleaseRequest{
				CarNumber:         carNumber,
				RiderID:           rider,
				ReleaseType:       releaseType,
				AssignmentID:      assignment,
				LeaseTransitionID: transition,
				Notes:             notes,
				Actor:             c.actor(),
			})
			if err != nil {
				return err
			}
			return c.printJSON(rel)
		},
	}
	cmd.Flags().StringVar(&carNumber, "car", "", "Car number (reporting mark)")
	cmd.Flags().StringVar(&riderID, "rider", "", "Rider id the car is released from")
	cmd.Flags().StringVar(&releaseType, "type", "", "Release type (lease_expiry, voluntary_return, abatement, transfer, customer_owned)")
	cmd.Flags().StringVar(&assignmentID, "assignment", "", "Shop assignment completed with the release")
	cmd.Flags().StringVar(&leaseTransitionID, "lease-transition", "", "Lease transition completed with the release")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("car")
	_ = cmd.MarkFlagRequired("rider")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (c *cli) newReleaseStepCmd(step, short string, withNotes bool) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   step + " <release-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("release id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			svc := a.Services.Releases
			ctx := cmd.Context()
			actor := c.actor()

			var out any
			switch step {
			case "approve":
				out, err = svc.Approve(ctx, id, actor, notes)
			case "execute":
				out, err = svc.Execute(ctx, id, actor)
			case "complete":
				out, err = svc.Complete(ctx, id, actor, notes)
			}
			if err != nil {
				return err
			}
			return c.printJSON(out)
		},
	}
	if withNotes {
		cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	}
	return cmd
}

func (c *cli) newReleaseCancelCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <release-id>",
		Short: "Cancel an open release",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("release id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			rel, err := a.Services.Releases.Cancel(cmd.Context(), id, c.actor(), reason)
			if err != nil {
				return err
			}
			return c.printJSON(rel)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Cancellation reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func (c *cli) newReleaseRevertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revert <release-id>",
		Short: "Undo the latest release transition when the ledger allows it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("release id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			out, err := a.Services.Releases.RevertLastTransition(cmd.Context(), id, c.actor())
			if err != nil {
				return err
			}
			return c.printJSON(out)
		},
	}
}

func (c *cli) newReleaseListCmd() *cobra.Command {
	var (
		carNumber, riderID string
		statuses           []string
		limit              int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List releases by car, rider or status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := repos.ReleaseFilter{CarNumber: carNumber, Statuses: statuses, Limit: limit}
			if riderID != "" {
				id, err := parseID("rider", riderID)
				if err != nil {
					return err
				}
				filter.RiderID = id
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			rows, err := a.Services.Releases.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return c.printJSON(rows)
		},
	}
	cmd.Flags().StringVar(&carNumber, "car", "", "Car number")
	cmd.Flags().StringVar(&riderID, "rider", "", "Rider id")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Release status (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows")
	return cmd
}
