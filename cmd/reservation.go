package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newReservationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservation",
		Short: "Inspect and cancel site-acknowledged reservations",
	}
	cmd.AddCommand(newReservationListCmd())
	cmd.AddCommand(newReservationCancelCmd())
	return cmd
}

func newReservationListCmd() *cobra.Command {
	var status string
	c := &cobra.Command{
		Use:   "list",
		Short: "List known reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			rs, err := a.manager.ListReservations(ctx, status)
			if err != nil {
				return err
			}
			for _, r := range rs {
				fmt.Fprintf(os.Stdout, "remote_id=%s %q %s %s at %q status=%s\n",
					r.RemoteID, r.Description, r.OccurrenceDate, r.OccurrenceTime, r.Location, r.Status)
			}
			return nil
		},
	}
	c.Flags().StringVar(&status, "status", "", "filter by status (active, cancelled)")
	return c
}

func newReservationCancelCmd() *cobra.Command {
	var remoteID string
	c := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a reservation on the site",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.engine.CancelReservation(ctx, remoteID); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "cancelled reservation %s\n", remoteID)
			return nil
		},
	}
	c.Flags().StringVar(&remoteID, "remote-id", "", "site booking id (see reservation list)")
	_ = c.MarkFlagRequired("remote-id")
	return c
}
