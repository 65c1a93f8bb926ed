package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	domainagg "github.com/yungbote/railfleet-backend/internal/domain/aggregates"
	"github.com/yungbote/railfleet-backend/internal/services"
)

func (c *cli) newAmendmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "amendment",
		Short: "Lease amendment lifecycle",
	}
	cmd.AddCommand(
		c.newAmendmentCreateCmd(),
		c.newAmendmentStepCmd("submit", "Submit a Draft amendment for approval"),
		c.newAmendmentStepCmd("approve", "Approve a Pending amendment"),
		c.newAmendmentRejectCmd(),
		c.newAmendmentStepCmd("activate", "Activate an Approved amendment, superseding the current one"),
	)
	return cmd
}

func (c *cli) newAmendmentCreateCmd() *cobra.Command {
	var (
		riderID, number, kind, summary, effective string
		rate                                      float64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Draft an amendment for a rider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rider, err := parseID("rider", riderID)
			if err != nil {
				return err
			}
			req := services.CreateAmendmentRequest{
				RiderID:         rider,
				AmendmentNumber: number,
				AmendmentType:   kind,
				Summary:         summary,
			}
			if cmd.Flags().Changed("rate") {
				r := rate
				req.NewRate = &r
			}
			if s := strings.TrimSpace(effective); s != "" {
				at, err := time.Parse("2006-01-02", s)
				if err != nil {
					return domainagg.NewError(domainagg.CodeValidation, "fleetctl", "invalid --effective date (want YYYY-MM-DD)", err)
				}
				req.EffectiveDate = at
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			req.Actor = c.actor()
			am, err := a.Services.Amendments.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.printJSON(am)
		},
	}
	cmd.Flags().StringVar(&riderID, "rider", "", "Rider id")
	cmd.Flags().StringVar(&number, "number", "", "Amendment number")
	cmd.Flags().StringVar(&kind, "type", "", "Amendment type")
	cmd.Flags().StringVar(&summary, "summary", "", "Summary of the change")
	cmd.Flags().Float64Var(&rate, "rate", 0, "New rider rate applied on activation")
	cmd.Flags().StringVar(&effective, "effective", "", "Effective date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("rider")
	_ = cmd.MarkFlagRequired("number")
	return cmd
}

func (c *cli) newAmendmentStepCmd(step, short string) *cobra.Command {
	return &cobra.Command{
		Use:   step + " <amendment-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("amendment id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			svc := a.Services.Amendments
			ctx := cmd.Context()
			actor := c.actor()

			var out any
			switch step {
			case "submit":
				out, err = svc.Submit(ctx, id, actor)
			case "approve":
				out, err = svc.Approve(ctx, id, actor)
			case "activate":
				out, err = svc.Activate(ctx, id, actor)
			}
			if err != nil {
				return err
			}
			return c.printJSON(out)
		},
	}
}

func (c *cli) newAmendmentRejectCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <amendment-id>",
		Short: "Return a Pending amendment to Draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("amendment id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			am, err := a.Services.Amendments.Reject(cmd.Context(), id, c.actor(), reason)
			if err != nil {
				return err
			}
			return c.printJSON(am)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Rejection reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}
