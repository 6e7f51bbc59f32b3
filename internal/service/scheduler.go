package service

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/trail/internal/domain"
)

// scheduleParser accepts standard five-field cron expressions and
// descriptors such as "@daily" or "@every 6h".
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ItemTypeLister returns the item types a scheduled sweep should cover.
type ItemTypeLister interface {
	ItemTypes(ctx context.Context) ([]string, error)
}

// SweepScheduler periodically queues a sweep of every recorded item type,
// so items that are never written again still converge on their limits.
type SweepScheduler struct {
	cron  *cron.Cron
	types ItemTypeLister
	queue domain.SweepEnqueuer
	log   *logrus.Logger
	ctx   context.Context //nolint:containedctx // set by Run, read by the cron job.
}

// NewSweepScheduler creates a scheduler that fires on spec.
func NewSweepScheduler(
	spec string, types ItemTypeLister, queue domain.SweepEnqueuer, log *logrus.Logger,
) (*SweepScheduler, error) {
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	s := &SweepScheduler{
		cron:  cron.New(cron.WithParser(scheduleParser)),
		types: types,
		queue: queue,
		log:   log,
		ctx:   context.Background(),
	}
	s.cron.Schedule(schedule, cron.FuncJob(s.tick))

	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled. A tick that is
// still queuing when ctx ends is waited for.
func (s *SweepScheduler) Run(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
}

// tick queues one sweep per item type.
func (s *SweepScheduler) tick() {
	types, err := s.types.ItemTypes(s.ctx)
	if err != nil {
		s.log.WithError(err).Error("sweep.schedule: listing item types")

		return
	}

	queued := 0

	for _, t := range types {
		if s.queue.Enqueue(t) {
			queued++
		}
	}

	s.log.WithFields(logrus.Fields{
		"item_types": len(types),
		"queued":     queued,
	}).Info("sweep.schedule")
}
