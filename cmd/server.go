package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/sport-scheduler/internal/scheduler"
)

func newServerCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking scheduler daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx, migrateUp)
			if err != nil {
				return err
			}
			defer a.close()

			s := scheduler.New(a.cfg.Location(), a.logger.Named("scheduler"))

			// Sweep settles expiries before any booking fires; midnight beats
			// the poll so fresh windows are not delayed by poll granularity.
			if err := s.Add("confirmation-sweep", "0 * * * *", scheduler.PrioritySweep, func(ctx context.Context) error {
				return a.engine.SweepConfirmations(ctx)
			}); err != nil {
				return err
			}
			if err := s.Add("midnight-execute", "0 0 * * *", scheduler.PriorityMidnight, func(ctx context.Context) error {
				_, err := a.engine.ExecuteDue(ctx)
				return err
			}); err != nil {
				return err
			}
			if err := s.Add("poll-execute", pollSpec(a.cfg.PollInterval()), scheduler.PriorityPoll, func(ctx context.Context) error {
				_, err := a.engine.ExecuteDue(ctx)
				return err
			}); err != nil {
				return err
			}
			if err := s.Add("daily-rollover", "30 0 * * *", scheduler.PriorityRollover, func(ctx context.Context) error {
				return a.engine.Rollover(ctx)
			}); err != nil {
				return err
			}

			s.Start(ctx)
			<-ctx.Done()
			cancel()
			s.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

func pollSpec(interval time.Duration) string {
	minutes := int(interval.Minutes())
	if minutes <= 1 {
		return "* * * * *"
	}
	return "*/" + strconv.Itoa(minutes) + " * * * *"
}
