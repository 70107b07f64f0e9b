package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPendingHonorsPriority(t *testing.T) {
	s := New(time.UTC, nil)

	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	// Registered out of priority order on purpose.
	require.NoError(t, s.Add("rollover", "30 0 * * *", PriorityRollover, record("rollover")))
	require.NoError(t, s.Add("poll", "*/5 * * * *", PriorityPoll, record("poll")))
	require.NoError(t, s.Add("sweep", "0 * * * *", PrioritySweep, record("sweep")))
	require.NoError(t, s.Add("midnight", "0 0 * * *", PriorityMidnight, record("midnight")))

	s.Trigger("poll")
	s.Trigger("rollover")
	s.Trigger("sweep")
	s.Trigger("midnight")
	s.RunPending(context.Background())

	assert.Equal(t, []string{"sweep", "midnight", "poll", "rollover"}, order)
}

func TestDuplicateTriggersCollapse(t *testing.T) {
	s := New(time.UTC, nil)

	runs := 0
	require.NoError(t, s.Add("poll", "*/5 * * * *", PriorityPoll, func(context.Context) error {
		runs++
		return nil
	}))

	s.Trigger("poll")
	s.Trigger("poll")
	s.Trigger("poll")
	s.RunPending(context.Background())

	assert.Equal(t, 1, runs)

	// A fresh trigger after the drain runs again.
	s.Trigger("poll")
	s.RunPending(context.Background())
	assert.Equal(t, 2, runs)
}

func TestFailedJobDoesNotBlockOthers(t *testing.T) {
	s := New(time.UTC, nil)

	var ran []string
	require.NoError(t, s.Add("sweep", "0 * * * *", PrioritySweep, func(context.Context) error {
		ran = append(ran, "sweep")
		return errors.New("boom")
	}))
	require.NoError(t, s.Add("poll", "*/5 * * * *", PriorityPoll, func(context.Context) error {
		ran = append(ran, "poll")
		return nil
	}))

	s.Kick()
	s.RunPending(context.Background())

	assert.Equal(t, []string{"sweep", "poll"}, ran)
}

func TestStartKicksAllJobs(t *testing.T) {
	s := New(time.UTC, nil)

	done := make(chan string, 2)
	require.NoError(t, s.Add("sweep", "0 * * * *", PrioritySweep, func(context.Context) error {
		done <- "sweep"
		return nil
	}))
	require.NoError(t, s.Add("poll", "*/5 * * * *", PriorityPoll, func(context.Context) error {
		done <- "poll"
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case name := <-done:
			got = append(got, name)
		case <-time.After(2 * time.Second):
			t.Fatal("jobs did not run on start")
		}
	}
	assert.ElementsMatch(t, []string{"sweep", "poll"}, got)

	cancel()
	s.Stop()
}
