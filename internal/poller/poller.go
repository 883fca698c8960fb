// Package poller refreshes read-only market data on fixed intervals and
// stores each result as a snapshot. Every tick starts an independent fetch;
// a fetch that finishes after a later-started one has been stored is dropped.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/olyamironova/txbuilder/internal/domain"
	"github.com/olyamironova/txbuilder/internal/metrics"
	"github.com/olyamironova/txbuilder/internal/port"
	"go.uber.org/zap"
)

// Poll outcomes reported to metrics.
const (
	ResultStored    = "stored"
	ResultDiscarded = "discarded"
	ResultError     = "error"
)

// Task is one market-data read repeated every Interval. Fetch fills the
// payload of snap; key, kind, sequence and fetch time are set by the poller.
type Task struct {
	Key      string
	Kind     string
	Interval time.Duration
	Fetch    func(ctx context.Context, snap *domain.MarketSnapshot) error
}

// series tracks sequence numbers for one task key.
type series struct {
	mu      sync.Mutex
	started uint64
	stored  uint64
}

type Poller struct {
	cache   port.Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time

	mu     sync.Mutex
	tasks  []Task
	series map[string]*series
	wg     sync.WaitGroup
}

func New(cache port.Cache, m *metrics.Metrics, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		cache:   cache,
		metrics: m,
		logger:  logger,
		timeout: 30 * time.Second,
		now:     time.Now,
		series:  make(map[string]*series),
	}
}

// Add registers a task. Tasks with a non-positive interval are ignored.
func (p *Poller) Add(tasks ...Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range tasks {
		if t.Interval <= 0 || t.Fetch == nil {
			p.logger.Warn("poll task skipped", zap.String("key", t.Key), zap.Duration("interval", t.Interval))
			continue
		}
		p.tasks = append(p.tasks, t)
	}
}

// Run polls every task once immediately and then on its ticker until ctx
// is cancelled. It returns after all in-flight fetches have finished.
func (p *Poller) Run(ctx context.Context) {
	p.mu.Lock()
	tasks := append([]Task(nil), p.tasks...)
	p.mu.Unlock()

	p.logger.Info("poller started", zap.Int("tasks", len(tasks)))
	var loops sync.WaitGroup
	for _, t := range tasks {
		loops.Add(1)
		go func(t Task) {
			defer loops.Done()
			p.loop(ctx, t)
		}(t)
	}
	loops.Wait()
	p.wg.Wait()
	p.logger.Info("poller stopped")
}

func (p *Poller) loop(ctx context.Context, t Task) {
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	p.spawn(ctx, t)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.spawn(ctx, t)
		}
	}
}

// spawn runs one fetch without waiting for earlier ones to finish.
func (p *Poller) spawn(ctx context.Context, t Task) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poll(ctx, t)
	}()
}

func (p *Poller) seriesFor(key string) *series {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.series[key]
	if !ok {
		s = &series{}
		p.series[key] = s
	}
	return s
}

// begin hands out the next sequence number for a task key.
func (p *Poller) begin(key string) (*series, uint64) {
	s := p.seriesFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return s, s.started
}

// poll fetches once and stores the result unless a later-started fetch of
// the same key is already stored.
func (p *Poller) poll(ctx context.Context, t Task) string {
	s, seq := p.begin(t.Key)

	fctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snap := &domain.MarketSnapshot{Key: t.Key, Kind: t.Kind, Seq: seq}
	if err := t.Fetch(fctx, snap); err != nil {
		p.logger.Warn("poll failed", zap.String("key", t.Key), zap.Uint64("seq", seq), zap.Error(err))
		p.metrics.Polled(t.Kind, ResultError)
		return ResultError
	}
	snap.FetchedAt = p.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.stored {
		p.logger.Debug("stale poll discarded", zap.String("key", t.Key), zap.Uint64("seq", seq), zap.Uint64("stored", s.stored))
		p.metrics.Polled(t.Kind, ResultDiscarded)
		return ResultDiscarded
	}
	if err := p.cache.SetSnapshot(ctx, snap); err != nil {
		p.logger.Warn("snapshot store failed", zap.String("key", t.Key), zap.Uint64("seq", seq), zap.Error(err))
		p.metrics.Polled(t.Kind, ResultError)
		return ResultError
	}
	s.stored = seq
	p.metrics.Polled(t.Kind, ResultStored)
	return ResultStored
}
