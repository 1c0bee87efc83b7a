package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"integen/api/internal/store"
)

// Scheduler runs the housekeeping jobs: the webhook idempotency ledger
// grows with every billing event and is trimmed nightly.
type Scheduler struct {
	cron      *cron.Cron
	store     store.Store
	retention time.Duration
	log       zerolog.Logger
}

func NewScheduler(st store.Store, retention time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		store:     st,
		retention: retention,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.pruneEvents); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop waits for any running job to finish, up to 5 seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) pruneEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pruned, err := s.store.PruneEvents(ctx, time.Now().Add(-s.retention))
	if err != nil {
		s.log.Error().Err(err).Msg("prune webhook events failed")
		return
	}
	if pruned > 0 {
		s.log.Info().Int("pruned", pruned).Msg("webhook event ledger trimmed")
	}
}
