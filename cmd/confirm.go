package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/sport-scheduler/internal/booking"
)

func newConfirmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Resolve pending booking confirmations",
	}
	cmd.AddCommand(newConfirmListCmd())
	cmd.AddCommand(newConfirmResolveCmd())
	return cmd
}

func newConfirmListCmd() *cobra.Command {
	var all bool
	c := &cobra.Command{
		Use:   "list",
		Short: "List confirmations awaiting a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			resolution := booking.ResolutionUnresolved
			if all {
				resolution = ""
			}
			cs, err := a.manager.ListConfirmations(ctx, resolution)
			if err != nil {
				return err
			}
			for _, c := range cs {
				fmt.Fprintf(os.Stdout, "id=%d slot=%q occurrence=%s deadline=%s resolution=%s\n",
					c.ID, c.Slot.Name,
					c.ScheduledFor.Format("2006-01-02 15:04"),
					c.ExpiresAt.In(a.cfg.Location()).Format(time.RFC3339),
					c.Resolution)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&all, "all", false, "include resolved confirmations")
	return c
}

func newConfirmResolveCmd() *cobra.Command {
	var (
		id      int64
		decline bool
	)
	c := &cobra.Command{
		Use:   "resolve",
		Short: "Accept or decline a confirmation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			conf, err := a.manager.ResolveConfirmation(ctx, id, !decline)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "confirmation id=%d resolution=%s\n", conf.ID, conf.Resolution)
			return nil
		},
	}
	c.Flags().Int64Var(&id, "id", 0, "confirmation id")
	c.Flags().BoolVar(&decline, "decline", false, "decline instead of accept")
	_ = c.MarkFlagRequired("id")
	return c
}
