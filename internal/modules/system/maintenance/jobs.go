// Package maintenance schedules housekeeping over accounts and stories and
// exposes the schedule to administrators.
package maintenance

import (
	"context"
	"time"

	"github.com/himlearning/storyhub/internal/pkg/cron"
	"go.uber.org/zap"
)

const (
	JobPruneTokens    = "prune_tokens"
	JobRepairCounters = "repair_counters"
)

// Register adds the housekeeping jobs to sched.
func Register(sched *cron.Scheduler, store Store, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("maintenance")

	sched.Register(cron.Job{
		Name:        JobPruneTokens,
		Description: "Remove expired verification and password reset tokens",
		Interval:    6 * time.Hour,
		Timeout:     time.Minute,
		Fn: func(ctx context.Context) error {
			n, err := store.PruneTokens(ctx, time.Now())
			if err != nil {
				return err
			}
			log.Info("expired tokens pruned", zap.Int64("accounts", n))
			return nil
		},
	})

	sched.Register(cron.Job{
		Name:        JobRepairCounters,
		Description: "Resync like, comment and read-list counters with their arrays",
		Interval:    24 * time.Hour,
		Timeout:     5 * time.Minute,
		Fn: func(ctx context.Context) error {
			n, err := store.RepairCounters(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				log.Warn("counters repaired", zap.Int64("documents", n))
			}
			return nil
		},
	})
}
