package feedsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/opencreel/creel/internal/catch"
	"github.com/opencreel/creel/internal/stream"
)

// DefaultDebounceWindow is the quiet period required after a burst of
// change events before a re-fetch runs.
const DefaultDebounceWindow = 300 * time.Millisecond

// ErrClosed is returned when operating on a synchronizer after Close.
var ErrClosed = errors.New("feed synchronizer closed")

// State is the synchronizer's position in its refresh cycle.
type State int

const (
	// StateIdle means no re-fetch is pending or running.
	StateIdle State = iota

	// StateDebouncing means a re-fetch is scheduled and the debounce
	// timer is armed.
	StateDebouncing

	// StateFetching means a re-fetch is running right now.
	StateFetching
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateFetching:
		return "fetching"
	default:
		return "unknown"
	}
}

// FetchFunc runs the view's full feed pipeline from the first page. The
// synchronizer calls it for both background and foreground refreshes;
// deeper pages reload on demand through normal pagination.
type FetchFunc func(ctx context.Context) (*catch.Page, error)

// Snapshot is a point-in-time copy of the view's held state.
type Snapshot struct {
	Items      []*catch.CatchRecord
	NextCursor string
	HasMore    bool
	Loading    bool
}

// Config configures a Synchronizer.
type Config struct {
	// Entity is the change-stream entity the view tracks.
	Entity string

	// Fetch runs the feed pipeline. Required.
	Fetch FetchFunc

	// DebounceWindow overrides DefaultDebounceWindow when positive.
	DebounceWindow time.Duration

	// Scheduler drives the debounce timer. Defaults to the wall clock.
	Scheduler Scheduler

	// OnUpdate, when set, is called with a snapshot after every state
	// change that a view would render.
	OnUpdate func(Snapshot)

	Logger  *slog.Logger
	Metrics *Metrics
}

// Synchronizer owns one view's held result list and keeps it consistent
// with the change stream.
//
// It runs a per-view state machine: Idle until an insert or update event
// arrives, Debouncing while the quiet-period timer is armed (each new event
// restarts it, coalescing bursts into one re-fetch), Fetching while the
// pipeline runs. An event arriving mid-fetch sets a single follow-up flag
// rather than queueing, so at most one extra cycle runs after the current
// fetch completes.
//
// Delete events are applied optimistically: the row leaves the held list
// synchronously, and its id joins a tombstone set that is re-applied after
// every fetch merge so a fetch that was already in flight when the delete
// arrived cannot resurrect the row.
type Synchronizer struct {
	entity    string
	fetch     FetchFunc
	debounce  time.Duration
	scheduler Scheduler
	onUpdate  func(Snapshot)
	logger    *slog.Logger
	metrics   *Metrics

	mu                sync.Mutex
	state             State
	pendingFollowUp   bool
	pendingForeground bool
	timer             Timer
	closed            bool
	unsubscribe       func()

	items      []*catch.CatchRecord
	nextCursor string
	hasMore    bool
	loading    bool
	tombstones map[string]struct{}
}

// New creates a synchronizer and subscribes it to broker. A failed
// subscription is not fatal: the view degrades to no live updates, the
// failure is logged and left to the caller's observability, and manual
// Refresh still works.
func New(cfg Config, broker *stream.Broker) (*Synchronizer, error) {
	if cfg.Fetch == nil {
		return nil, errors.New("feedsync: Fetch is required")
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewScheduler()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Synchronizer{
		entity:     cfg.Entity,
		fetch:      cfg.Fetch,
		debounce:   cfg.DebounceWindow,
		scheduler:  cfg.Scheduler,
		onUpdate:   cfg.OnUpdate,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tombstones: make(map[string]struct{}),
	}

	events, unsubscribe, err := broker.Subscribe(cfg.Entity)
	if err != nil {
		s.logger.Warn("live updates unavailable for view",
			slog.String("entity", cfg.Entity),
			slog.String("error", err.Error()))
		s.unsubscribe = func() {}
		return s, nil
	}
	s.unsubscribe = unsubscribe
	go s.loop(events)
	return s, nil
}

// loop consumes change events until the subscription channel closes.
func (s *Synchronizer) loop(events <-chan stream.ChangeEvent) {
	for ev := range events {
		s.HandleEvent(ev)
	}
}

// HandleEvent applies one change event. Deletes for held ids are applied
// synchronously; inserts and updates arm or restart the debounce window.
func (s *Synchronizer) HandleEvent(ev stream.ChangeEvent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if ev.Kind == stream.EventDelete {
		removed := s.removeLocked(ev.ID)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		if removed {
			s.metrics.IncOptimisticRemoval()
			s.notify(snap)
		}
		return
	}

	s.scheduleLocked()
	s.mu.Unlock()
}

// scheduleLocked arms, restarts, or defers a re-fetch. Caller holds mu.
func (s *Synchronizer) scheduleLocked() {
	switch s.state {
	case StateFetching:
		// One follow-up cycle at most; further events fold into it.
		if s.pendingFollowUp {
			s.metrics.IncCoalesced()
		}
		s.pendingFollowUp = true
	case StateDebouncing:
		s.metrics.IncCoalesced()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = s.scheduler.AfterFunc(s.debounce, s.debounceFired)
	case StateIdle:
		s.state = StateDebouncing
		s.timer = s.scheduler.AfterFunc(s.debounce, s.debounceFired)
	}
}

// debounceFired runs when the quiet period elapses.
func (s *Synchronizer) debounceFired() {
	s.mu.Lock()
	if s.closed || s.state != StateDebouncing {
		s.mu.Unlock()
		return
	}
	s.state = StateFetching
	s.timer = nil
	s.mu.Unlock()

	s.runFetch(context.Background(), false)
}

// Refresh runs a caller-initiated foreground re-fetch: the loading flag is
// visible to the view and pagination resets to the first page. If a fetch
// is already running, the refresh folds into the single follow-up cycle,
// which then runs in the foreground: the loading flag stays on until the
// refreshed data lands, not just until the in-flight fetch completes.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateFetching {
		s.pendingFollowUp = true
		s.pendingForeground = true
		s.loading = true
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)
		return nil
	}
	if s.state == StateDebouncing && s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.state = StateFetching
	s.loading = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)

	return s.runFetch(ctx, true)
}

// runFetch executes one pipeline run and merges the result. Background
// runs never toggle the loading flag.
func (s *Synchronizer) runFetch(ctx context.Context, foreground bool) error {
	mode := ModeBackground
	if foreground {
		mode = ModeForeground
	}
	s.metrics.IncRefresh(mode)

	page, err := s.fetch(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return err
	}

	if err != nil {
		s.metrics.IncFetchError()
		s.logger.Warn("feed re-fetch failed",
			slog.String("entity", s.entity),
			slog.String("mode", mode),
			slog.String("error", err.Error()))
	} else {
		s.mergeLocked(page)
	}

	followForeground := false
	switch {
	case s.pendingFollowUp && s.pendingForeground:
		// A refresh folded in mid-fetch. Stay in Fetching and keep the
		// loading flag on until its own run lands.
		s.pendingFollowUp = false
		s.pendingForeground = false
		followForeground = true
	case s.pendingFollowUp:
		s.pendingFollowUp = false
		s.state = StateDebouncing
		s.timer = s.scheduler.AfterFunc(s.debounce, s.debounceFired)
		s.loading = false
	default:
		s.state = StateIdle
		s.loading = false
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	if followForeground {
		return s.runFetch(ctx, true)
	}
	return err
}

// mergeLocked replaces held data with a fetch result, re-applying the
// tombstone filter so a stale fetch cannot resurrect a deleted row.
// Caller holds mu.
func (s *Synchronizer) mergeLocked(page *catch.Page) {
	items := page.Items[:0:0]
	for _, rec := range page.Items {
		if _, gone := s.tombstones[rec.ID]; gone {
			continue
		}
		items = append(items, rec)
	}
	s.items = items
	s.nextCursor = page.NextCursor
	s.hasMore = page.HasMore
}

// removeLocked drops id from the held list and records its tombstone.
// Caller holds mu. Returns whether the list changed.
func (s *Synchronizer) removeLocked(id string) bool {
	s.tombstones[id] = struct{}{}
	for i, rec := range s.items {
		if rec.ID == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the view's current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// snapshotLocked copies current state. Caller holds mu.
func (s *Synchronizer) snapshotLocked() Snapshot {
	items := make([]*catch.CatchRecord, len(s.items))
	copy(items, s.items)
	return Snapshot{
		Items:      items,
		NextCursor: s.nextCursor,
		HasMore:    s.hasMore,
		Loading:    s.loading,
	}
}

// State returns the current state-machine position.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Synchronizer) notify(snap Snapshot) {
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}

// Close tears the view down: the debounce timer is cancelled and the
// stream subscription released in the same step, under the same lock, so
// no callback or event can mutate state after Close returns.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pendingFollowUp = false
	s.pendingForeground = false
	s.state = StateIdle
	s.unsubscribe()
}
