package schedule

import (
	"context"
	"log/slog"
	"time"
)

func RunAt(ctx context.Context, runAt time.Time, execute func(ctx context.Context)) {
	go func() {
		delay := time.Until(runAt)
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return
			}
		}
		execute(ctx)
	}()
}

// Loop runs execute at every occurrence of the cron expression until ctx is done.
// Runs never overlap: the next occurrence is computed after the previous run returns.
func Loop(ctx context.Context, cron string, execute func(ctx context.Context)) error {
	if err := ValidateCron(cron); err != nil {
		return err
	}
	for {
		next, err := NextRunTimesAfter(cron, time.Now().UTC(), 1)
		if err != nil {
			return err
		}
		if len(next) == 0 || next[0].IsZero() {
			slog.Warn("cron expression has no upcoming run times", "cron", cron)
			return nil
		}

		timer := time.NewTimer(time.Until(next[0]))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		execute(ctx)
	}
}
