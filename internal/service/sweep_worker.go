package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/trail/internal/metrics"
	"github.com/persistorai/trail/internal/models"
)

// sweepTimeout bounds a single background sweep.
const sweepTimeout = 10 * time.Minute

// Sweeper runs a retention sweep over one item type.
type Sweeper interface {
	Sweep(ctx context.Context, itemType string) (*models.SweepResult, error)
}

// SweepWorker buffers sweep requests and runs them on a single goroutine.
type SweepWorker struct {
	sweeper Sweeper
	log     *logrus.Logger
	jobs    chan string
}

// NewSweepWorker creates a SweepWorker with the given queue capacity.
func NewSweepWorker(sweeper Sweeper, log *logrus.Logger, queueSize int) *SweepWorker {
	if queueSize <= 0 {
		queueSize = 64
	}

	return &SweepWorker{
		sweeper: sweeper,
		log:     log,
		jobs:    make(chan string, queueSize),
	}
}

// Enqueue adds a sweep for itemType. Non-blocking; returns false and drops
// the request if the queue is full.
func (w *SweepWorker) Enqueue(itemType string) bool {
	select {
	case w.jobs <- itemType:
		metrics.SweepQueueDepth.Set(float64(len(w.jobs)))

		return true
	default:
		w.log.WithField("item_type", itemType).Warn("sweep queue full, dropping request")

		return false
	}
}

// Run processes sweeps until the context is cancelled, then drains remaining requests.
func (w *SweepWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()

			return
		case itemType := <-w.jobs:
			w.process(itemType)
		}
	}
}

func (w *SweepWorker) drain() {
	for {
		select {
		case itemType := <-w.jobs:
			w.process(itemType)
		default:
			return
		}
	}
}

func (w *SweepWorker) process(itemType string) {
	metrics.SweepQueueDepth.Set(float64(len(w.jobs)))

	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()

	res, err := w.sweeper.Sweep(ctx, itemType)
	if err != nil {
		w.log.WithError(err).WithField("item_type", itemType).Warn("sweep failed")

		return
	}

	w.log.WithFields(logrus.Fields{
		"item_type":       res.ItemType,
		"items":           res.Items,
		"deleted":         res.Deleted,
		"objects_cleared": res.ObjectsCleared,
		"changes_cleared": res.ChangesCleared,
		"failed":          res.Failed,
		"duration":        time.Since(start),
	}).Info("sweep.done")
}
