package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh local state from the booking site",
	}
	cmd.AddCommand(newSyncCatalogCmd())
	cmd.AddCommand(newSyncReservationsCmd())
	return cmd
}

func newSyncCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Scrape the weekly schedule and replace the slot catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.engine.SyncCatalog(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "catalog synced: %d slots (%d new)\n", res.Total, res.Inserted)
			return nil
		},
	}
}

func newSyncReservationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reservations",
		Short: "Mirror the site's own bookings list into local reservations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.engine.SyncReservations(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "reservations synced: %d on site\n", n)
			return nil
		},
	}
}
