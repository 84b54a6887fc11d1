// Package scheduler drives periodic update cycles over the configured feeds.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/metrics"
	"github.com/StrathCole/medianizer-go/pkg/pricefeed"
)

// Publisher receives the snapshots taken after each update cycle.
type Publisher interface {
	Publish(snapshots []pricefeed.Snapshot)
}

// Scheduler updates the top-level feeds on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	schedule   string
	timeout    time.Duration
	feeds      []pricefeed.PriceFeed
	publishers []Publisher
	logger     *logging.Logger
	now        func() time.Time

	mu   sync.RWMutex
	last []pricefeed.Snapshot
}

// New creates a scheduler. schedule uses the standard cron syntax, including
// descriptors such as "@every 30s".
func New(schedule string, timeout time.Duration, feeds []pricefeed.PriceFeed, logger *logging.Logger, publishers ...Publisher) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = logging.Global()
	}

	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		schedule:   schedule,
		timeout:    timeout,
		feeds:      feeds,
		publishers: publishers,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Start registers the update job and starts the cron runner. Cycles run with
// a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("register update job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", "schedule", s.schedule, "feeds", len(s.feeds))
	return nil
}

// Stop stops the cron runner and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunOnce updates every top-level feed concurrently, then snapshots and
// publishes them. A failing feed does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) []pricefeed.Snapshot {
	logger := s.logger.With("cycle", uuid.NewString())
	start := time.Now()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var g errgroup.Group
	for i, feed := range s.feeds {
		name := pricefeed.NameOf(feed, "feed["+strconv.Itoa(i)+"]")
		g.Go(func() error {
			if err := feed.Update(ctx); err != nil {
				logger.Warn("Feed update failed", "feed", name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	metrics.RecordUpdateCycle(elapsed)

	snapshots := pricefeed.TakeSnapshots(s.feeds, s.now())

	s.mu.Lock()
	s.last = snapshots
	s.mu.Unlock()

	for _, p := range s.publishers {
		p.Publish(snapshots)
	}

	logger.Debug("Update cycle complete", "duration", elapsed.String(), "feeds", len(snapshots))
	return snapshots
}

// Last returns the snapshots of the most recent cycle.
func (s *Scheduler) Last() []pricefeed.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// cronLogger routes cron's own logging through the service logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
