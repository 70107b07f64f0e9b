package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/sport-scheduler/internal/booking"
	"github.com/example/sport-scheduler/internal/catalog"
)

func newBookingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Manage one-shot scheduled bookings",
	}
	cmd.AddCommand(newBookingCreateCmd())
	cmd.AddCommand(newBookingListCmd())
	cmd.AddCommand(newBookingCancelCmd())
	cmd.AddCommand(newBookingNowCmd())
	cmd.AddCommand(newBookingSlotsCmd())
	return cmd
}

func newBookingCreateCmd() *cobra.Command {
	var (
		slotKey string
		date    string
	)
	c := &cobra.Command{
		Use:   "create",
		Short: "Schedule a booking for a future slot occurrence",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			target, err := time.ParseInLocation("2006-01-02", date, a.cfg.Location())
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
			}
			slot, err := a.catalog.ByKey(ctx, slotKey)
			if err != nil {
				return fmt.Errorf("slot %q: %w", slotKey, err)
			}

			b, err := a.manager.Schedule(ctx, booking.SlotRefOf(slot), target)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created booking id=%d slot=%q target=%s fire_at=%s\n",
				b.ID, b.Slot.Name, b.TargetDate.Format("2006-01-02"), b.FireAt.Format(time.RFC3339))
			return nil
		},
	}
	c.Flags().StringVar(&slotKey, "slot-key", "", "catalog slot key (see booking slots)")
	c.Flags().StringVar(&date, "date", "", "occurrence date YYYY-MM-DD")
	_ = c.MarkFlagRequired("slot-key")
	_ = c.MarkFlagRequired("date")
	return c
}

func newBookingListCmd() *cobra.Command {
	var status string
	c := &cobra.Command{
		Use:   "list",
		Short: "List scheduled bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			bs, err := a.manager.ListScheduled(ctx, status)
			if err != nil {
				return err
			}
			for _, b := range bs {
				fmt.Fprintf(os.Stdout, "id=%d slot=%q target=%s time=%s status=%s fire_at=%s\n",
					b.ID, b.Slot.Name, b.TargetDate.Format("2006-01-02"), b.Slot.TimeStart,
					b.Status, b.FireAt.Format(time.RFC3339))
			}
			return nil
		},
	}
	c.Flags().StringVar(&status, "status", "", "filter by status (pending, fired, succeeded, failed, cancelled)")
	return c
}

func newBookingCancelCmd() *cobra.Command {
	var id int64
	c := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a pending booking",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.manager.Cancel(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "cancelled booking id=%d\n", id)
			return nil
		},
	}
	c.Flags().Int64Var(&id, "id", 0, "booking id")
	_ = c.MarkFlagRequired("id")
	return c
}

func newBookingNowCmd() *cobra.Command {
	var (
		slotKey string
		date    string
	)
	c := &cobra.Command{
		Use:   "now",
		Short: "Book a slot occurrence already inside the booking window",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			target, err := time.ParseInLocation("2006-01-02", date, a.cfg.Location())
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
			}
			slot, err := a.catalog.ByKey(ctx, slotKey)
			if err != nil {
				return fmt.Errorf("slot %q: %w", slotKey, err)
			}

			remoteID, err := a.engine.BookNow(ctx, slot, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "booked %q on %s (remote id %s)\n", slot.Name, date, remoteID)
			return nil
		},
	}
	c.Flags().StringVar(&slotKey, "slot-key", "", "catalog slot key (see booking slots)")
	c.Flags().StringVar(&date, "date", "", "occurrence date YYYY-MM-DD")
	_ = c.MarkFlagRequired("slot-key")
	_ = c.MarkFlagRequired("date")
	return c
}

func newBookingSlotsCmd() *cobra.Command {
	var weekday int
	c := &cobra.Command{
		Use:   "slots",
		Short: "List catalog slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			var slots []catalog.Slot
			if weekday >= 0 {
				slots, err = a.catalog.ByWeekday(ctx, weekday)
			} else {
				slots, err = a.catalog.All(ctx)
			}
			if err != nil {
				return err
			}
			for _, s := range slots {
				fmt.Fprintf(os.Stdout, "key=%q %s %s-%s %q at %q instructor=%q\n",
					s.Key(), s.Weekday, s.TimeStart, s.TimeEnd, s.Name, s.Location, s.Instructor)
			}
			return nil
		},
	}
	c.Flags().IntVar(&weekday, "weekday", -1, "filter by weekday (0=Sunday .. 6=Saturday)")
	return c
}
