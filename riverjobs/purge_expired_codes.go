package riverjobs

import (
	"context"
	"errors"
	stdlog "log"
	"time"

	"github.com/riverqueue/river"

	"github.com/servxpert/authcore/core"
)

type PurgeExpiredCodesArgs struct {
	// GraceMinutes keeps expired rows around briefly so verification can
	// still report code_expired instead of no_active_code.
	GraceMinutes int `json:"grace_minutes,omitempty"`
}

func (PurgeExpiredCodesArgs) Kind() string { return "authcore_purge_expired_codes" }

func (args PurgeExpiredCodesArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: time.Hour,
			ByQueue:  true,
		},
	}
}

// PurgeExpiredCodesWorker deletes expired OTP rows. Storage hygiene only;
// expiry is enforced at verification time regardless.
type PurgeExpiredCodesWorker struct {
	river.WorkerDefaults[PurgeExpiredCodesArgs]
	svc *core.Service
}

func NewPurgeExpiredCodesWorker(svc *core.Service) *PurgeExpiredCodesWorker {
	return &PurgeExpiredCodesWorker{svc: svc}
}

func (w *PurgeExpiredCodesWorker) Timeout(*river.Job[PurgeExpiredCodesArgs]) time.Duration {
	return 5 * time.Minute
}

func (w *PurgeExpiredCodesWorker) Work(ctx context.Context, job *river.Job[PurgeExpiredCodesArgs]) error {
	if w == nil || w.svc == nil {
		return errors.New("authcore purge: service not configured")
	}
	grace := job.Args.GraceMinutes
	if grace <= 0 {
		grace = 60
	}
	cutoff := time.Now().Add(-time.Duration(grace) * time.Minute)
	n, err := w.svc.PurgeExpiredCodes(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		stdlog.Printf("[authcore/purge] removed %d expired otp rows", n)
	}
	return nil
}
