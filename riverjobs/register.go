package riverjobs

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"

	"github.com/servxpert/authcore/core"
)

// RegisterPurgeExpiredCodesWorker registers the purge worker into a River workers registry.
func RegisterPurgeExpiredCodesWorker(ws *river.Workers, svc *core.Service) {
	river.AddWorker(ws, NewPurgeExpiredCodesWorker(svc))
}

// AddPurgeExpiredCodesPeriodicJob adds a periodic job that enqueues the purge job on a cron schedule.
//
// Example cron: "*/30 * * * *" (every 30 minutes).
func AddPurgeExpiredCodesPeriodicJob[T any](client *river.Client[T], cronSpec string, args PurgeExpiredCodesArgs, runOnStart bool) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	opts := args.InsertOpts()
	_ = client.PeriodicJobs().Add(
		river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
			&river.PeriodicJobOpts{RunOnStart: runOnStart},
		),
	)
	return nil
}
