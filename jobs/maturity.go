package jobs

import (
	"context"
	"fmt"

	"partnerhub/services"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// MaturityScheduler periodically credits commissions whose maturity window
// has elapsed.
type MaturityScheduler struct {
	cron     *cron.Cron
	accrual  *services.Accrual
	schedule string
}

func NewMaturityScheduler(accrual *services.Accrual, schedule string) *MaturityScheduler {
	return &MaturityScheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		accrual:  accrual,
		schedule: schedule,
	}
}

func (s *MaturityScheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid maturity schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.WithField("schedule", s.schedule).Info("Maturity scheduler started")
	return nil
}

// RunOnce promotes one batch of matured commissions.
func (s *MaturityScheduler) RunOnce(ctx context.Context) int {
	n, err := s.accrual.PromoteMatured(ctx)
	if err != nil {
		log.WithError(err).WithField("promoted", n).Error("[CRON] commission promotion failed")
		return n
	}
	log.WithField("promoted", n).Debug("[CRON] commission promotion done")
	return n
}

func (s *MaturityScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Maturity scheduler stopped")
}
