package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/sport-scheduler/internal/booking"
)

func newRecurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage weekly recurring booking templates",
	}
	cmd.AddCommand(newRecurringCreateCmd())
	cmd.AddCommand(newRecurringListCmd())
	cmd.AddCommand(newRecurringToggleCmd())
	cmd.AddCommand(newRecurringDeleteCmd())
	return cmd
}

func newRecurringCreateCmd() *cobra.Command {
	var (
		slotKey string
		confirm bool
	)
	c := &cobra.Command{
		Use:   "create",
		Short: "Register a weekly template for a catalog slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			slot, err := a.catalog.ByKey(ctx, slotKey)
			if err != nil {
				return fmt.Errorf("slot %q: %w", slotKey, err)
			}

			r, err := a.manager.CreateRecurring(ctx, booking.SlotRefOf(slot), confirm)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created recurring id=%d slot=%q %s %s confirm=%t\n",
				r.ID, r.Slot.Name, r.Slot.Weekday, r.Slot.TimeStart, r.RequiresConfirmation)
			return nil
		},
	}
	c.Flags().StringVar(&slotKey, "slot-key", "", "catalog slot key (see booking slots)")
	c.Flags().BoolVar(&confirm, "confirm", false, "require a yes/no confirmation before each occurrence")
	_ = c.MarkFlagRequired("slot-key")
	return c
}

func newRecurringListCmd() *cobra.Command {
	var activeOnly bool
	c := &cobra.Command{
		Use:   "list",
		Short: "List recurring templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			rs, err := a.manager.ListRecurring(ctx, activeOnly)
			if err != nil {
				return err
			}
			for _, r := range rs {
				fmt.Fprintf(os.Stdout, "id=%d slot=%q %s %s active=%t confirm=%t\n",
					r.ID, r.Slot.Name, r.Slot.Weekday, r.Slot.TimeStart, r.Active, r.RequiresConfirmation)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&activeOnly, "active", false, "only active templates")
	return c
}

func newRecurringToggleCmd() *cobra.Command {
	var (
		id     int64
		active bool
	)
	c := &cobra.Command{
		Use:   "toggle",
		Short: "Activate or pause a recurring template",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.manager.ToggleRecurring(ctx, id, active); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "recurring id=%d active=%t\n", id, active)
			return nil
		},
	}
	c.Flags().Int64Var(&id, "id", 0, "recurring template id")
	c.Flags().BoolVar(&active, "active", true, "desired state")
	_ = c.MarkFlagRequired("id")
	return c
}

func newRecurringDeleteCmd() *cobra.Command {
	var id int64
	c := &cobra.Command{
		Use:   "delete",
		Short: "Delete a recurring template",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.manager.DeleteRecurring(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "deleted recurring id=%d\n", id)
			return nil
		},
	}
	c.Flags().Int64Var(&id, "id", 0, "recurring template id")
	_ = c.MarkFlagRequired("id")
	return c
}
