package sync

import (
	"context"
	"sync"
	"time"

	"github.com/warp/replica-sync/config"
)

// State is the Scheduler's externally-visible lifecycle, reported by
// statusapi.
type State string

const (
	StateDisabled State = "disabled"
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
)

// PassRecord is the most recent outcome for one entity, kept for the
// status endpoint.
type PassRecord struct {
	Result    Result
	StartedAt time.Time
}

// Scheduler drives one Engine on a fixed interval, one entity at a time,
// with single-flight suppression per (device, entity) so a slow pass is
// never started twice concurrently. Built on a ticker + stop-channel +
// waitgroup pattern generalized from one reconciliation loop to N
// independent entity streams sharing one ticker.
type Scheduler struct {
	Engine   *Engine
	Config   config.Config
	DeviceID string

	mu       sync.Mutex
	state    State
	running  map[string]bool
	last     map[string]PassRecord
	ticker   *time.Ticker
	stop     chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(engine *Engine, cfg config.Config, deviceID string) *Scheduler {
	return &Scheduler{
		Engine:   engine,
		Config:   cfg,
		DeviceID: deviceID,
		state:    StateDisabled,
		running:  make(map[string]bool),
		last:     make(map[string]PassRecord),
	}
}

// Start begins the periodic loop, running one tick immediately rather
// than waiting a full interval (teacher's run() does the same).
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning || s.state == StateIdle {
		return
	}

	s.ticker = time.NewTicker(s.Config.Sync.Interval())
	s.stop = make(chan struct{})
	s.state = StateIdle
	s.wg.Add(1)

	go s.loop()
}

// Stop lets any in-flight passes finish and prevents new ones from
// starting; it does not cancel a running pass.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.ticker == nil {
		s.mu.Unlock()
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.state = StateStopped
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	s.tick()
	for {
		select {
		case <-s.ticker.C:
			s.tick()
		case <-s.stop:
			return
		}
	}
}

func (s *Scheduler) tick() {
	for _, entity := range config.AllEntities {
		s.mu.Lock()
		if s.state == StateStopped {
			// Stop was called mid-tick: start no further passes.
			s.mu.Unlock()
			return
		}
		if s.running[entity] {
			// Single-flight: the previous pass for this entity hasn't
			// finished yet, skip this tick for it.
			s.mu.Unlock()
			continue
		}
		s.running[entity] = true
		s.state = StateRunning
		s.mu.Unlock()

		s.runOne(entity)
	}

	s.mu.Lock()
	if s.state != StateStopped {
		s.state = StateIdle
	}
	s.mu.Unlock()
}

func (s *Scheduler) runOne(entity string) {
	start := time.Now()
	result := s.Engine.RunPass(context.Background(), s.DeviceID, entity)

	s.mu.Lock()
	s.running[entity] = false
	s.last[entity] = PassRecord{Result: result, StartedAt: start}
	s.mu.Unlock()
}

// TriggerNow runs one immediate pass for entity outside the regular
// interval (spec's operator-facing manual trigger), skipping it if a
// pass for that entity is already in flight.
func (s *Scheduler) TriggerNow(entity string) (Result, bool) {
	s.mu.Lock()
	if s.running[entity] {
		s.mu.Unlock()
		return Result{}, false
	}
	s.running[entity] = true
	s.mu.Unlock()

	s.runOne(entity)

	s.mu.Lock()
	record := s.last[entity]
	s.mu.Unlock()
	return record.Result, true
}

// ReachabilityChecker is implemented by the source and target
// connections so an endpoint that cannot be reached is caught by an
// explicit startup probe.
type ReachabilityChecker interface {
	Ping(ctx context.Context) error
}

// Probe pings the source, then the target, and returns the first error.
// It does not change the scheduler's state and publishes nothing to
// statusapi; the serve command calls it before Start and exits when it
// fails.
func (s *Scheduler) Probe(ctx context.Context, source, target ReachabilityChecker) error {
	if err := source.Ping(ctx); err != nil {
		return err
	}
	return target.Ping(ctx)
}

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastResults snapshots the most recent pass outcome for every entity
// that has run at least once.
func (s *Scheduler) LastResults() map[string]PassRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]PassRecord, len(s.last))
	for k, v := range s.last {
		out[k] = v
	}
	return out
}
