package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/railfleet-backend/internal/services"
)

func (c *cli) newRiderCarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rider-car",
		Short: "Rider-car lifecycle",
	}
	cmd.AddCommand(c.newRiderCarCreateCmd(), c.newRiderCarTransitionCmd())
	return cmd
}

func (c *cli) newRiderCarCreateCmd() *cobra.Command {
	var riderID, carID, carNumber string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Attach a car to a rider in the decided state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rider, err := parseID("rider", riderID)
			if err != nil {
				return err
			}
			car, err := parseID("car id", carID)
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			rc, err := a.Services.RiderCars.Create(cmd.Context(), services.CreateRiderCarRequest{
				RiderID:   rider,
				CarID:     car,
				CarNumber: carNumber,
				Actor:     c.actor(),
			})
			if err != nil {
				return err
			}
			return c.printJSON(rc)
		},
	}
	cmd.Flags().StringVar(&riderID, "rider", "", "Rider id")
	cmd.Flags().StringVar(&carID, "car-id", "", "Car id")
	cmd.Flags().StringVar(&carNumber, "car", "", "Car number")
	_ = cmd.MarkFlagRequired("rider")
	_ = cmd.MarkFlagRequired("car-id")
	_ = cmd.MarkFlagRequired("car")
	return cmd
}

func (c *cli) newRiderCarTransitionCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "transition <rider-car-id>",
		Short: "Move a rider car to another lifecycle state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("rider car id", args[0])
			if err != nil {
				return err
			}
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			rc, err := a.Services.RiderCars.Transition(cmd.Context(), id, to, c.actor())
			if err != nil {
				return err
			}
			return c.printJSON(rc)
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target state (prep_required, on_rent, releasing, off_rent, cancelled)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
