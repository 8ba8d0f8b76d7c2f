// Package queue implements the analysis task queue: submission, progress
// simulation, sequential processing against the prediction gateway and
// whole-list persistence through a task.Store.
//
// A Queue owns exactly one task list stored under one key.  All mutations
// are serialised by a mutex and followed by a persist of the full list;
// gateway calls and pacing delays happen outside the lock.
package queue

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/turtacn/ChemXGen/internal/domain/task"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// Config tunes a Queue.  Zero values fall back to the defaults below.
type Config struct {
	StorageKey    string
	PacingDelay   time.Duration
	DefaultRoutes int
}

const (
	DefaultStorageKey      = "chemxgen_running_tasks"
	DefaultPacingDelay     = 1500 * time.Millisecond
	DefaultSynthesisRoutes = 5
)

// Option customises a Queue.
type Option func(*Queue)

// WithPublisher sets the lifecycle event sink.
func WithPublisher(p EventPublisher) Option { return func(q *Queue) { q.publisher = p } }

// WithMetrics sets the instrumentation sink.
func WithMetrics(m Metrics) Option { return func(q *Queue) { q.metrics = m } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(q *Queue) { q.now = now } }

// WithSleep replaces the pacing wait.  sleep must return ctx.Err() when the
// context ends first.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(q *Queue) { q.sleep = sleep }
}

// Queue is the task list and its processor.
type Queue struct {
	mu         sync.Mutex
	tasks      []*task.Task // most recent first
	inflight   map[string]struct{}
	generation uint64

	store     task.Store
	analyzer  Analyzer
	publisher EventPublisher
	metrics   Metrics
	logger    logging.Logger

	key           string
	pacing        time.Duration
	defaultRoutes int
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error

	subMu  sync.Mutex
	subs   map[int]subscriber
	nextID int
}

type subscriber struct {
	ch    chan struct{}
	ticks bool
}

// New creates an empty queue.  Call Load to restore a persisted list.
func New(cfg Config, store task.Store, analyzer Analyzer, logger logging.Logger, opts ...Option) *Queue {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	if cfg.PacingDelay < 0 {
		cfg.PacingDelay = 0
	}
	if cfg.DefaultRoutes <= 0 {
		cfg.DefaultRoutes = DefaultSynthesisRoutes
	}
	q := &Queue{
		inflight:      make(map[string]struct{}),
		store:         store,
		analyzer:      analyzer,
		publisher:     nopPublisher{},
		metrics:       nopMetrics{},
		logger:        logger.Named("queue"),
		key:           cfg.StorageKey,
		pacing:        cfg.PacingDelay,
		defaultRoutes: cfg.DefaultRoutes,
		now:           time.Now,
		sleep:         sleepCtx,
		subs:          make(map[int]subscriber),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Key returns the storage key of the list.
func (q *Queue) Key() string { return q.key }

// ─────────────────────────────────────────────────────────────────────────────
// Submission
// ─────────────────────────────────────────────────────────────────────────────

// Submit validates req, prepends a new running task and persists the list.
// A request whose ID is already queued is ignored: the existing task is
// returned with created=false and no error.
func (q *Queue) Submit(ctx context.Context, req task.Request) (t *task.Task, created bool, err error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	now := q.now()

	q.mu.Lock()
	if req.ID != "" {
		if existing := q.find(req.ID); existing != nil {
			snapshot := existing.Clone()
			q.mu.Unlock()
			q.logger.Debug("duplicate submission ignored", logging.String(logging.FieldTaskID, req.ID))
			return snapshot, false, nil
		}
	}
	nt := req.Build(now)
	if q.find(nt.ID) != nil {
		q.mu.Unlock()
		return nil, false, errors.New(errors.ErrCodeConflict, "generated task id collides").WithDetail("id=" + nt.ID)
	}
	q.tasks = append([]*task.Task{nt}, q.tasks...)
	q.persistLocked(ctx, "submit")
	snapshot := nt.Clone()
	running := q.countRunningLocked()
	q.mu.Unlock()

	q.metrics.TaskSubmitted(snapshot.Type)
	q.metrics.Running(running)
	q.logger.Info("task submitted",
		logging.String(logging.FieldTaskID, snapshot.ID),
		logging.String(logging.FieldTaskKind, string(snapshot.Type)))
	q.notify(false)
	q.publish(ctx, task.LifecycleSubmitted, snapshot)
	return snapshot, true, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Processing
// ─────────────────────────────────────────────────────────────────────────────

// Process runs one pass over the list.  Every running task not already in
// flight is claimed up front, then handled one at a time in list order: wait
// the pacing delay, call the analyzer for its kind, apply the outcome and
// persist.  A failing task never aborts the pass.  Process returns early,
// releasing unhandled claims, when ctx ends; a Clear during the pass stops
// it before the next task is dispatched.
func (q *Queue) Process(ctx context.Context) error {
	q.mu.Lock()
	gen := q.generation
	var batch []*task.Task
	for _, t := range q.tasks {
		if t.Status != task.StatusRunning {
			continue
		}
		if _, busy := q.inflight[t.ID]; busy {
			continue
		}
		q.inflight[t.ID] = struct{}{}
		batch = append(batch, t.Clone())
	}
	inflight := len(q.inflight)
	q.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	q.metrics.InFlight(inflight)
	q.logger.Debug("processing pass started", logging.Int("tasks", len(batch)))

	for i, t := range batch {
		if q.superseded(gen) {
			q.logger.Debug("task list cleared, pass abandoned", logging.Int("skipped", len(batch)-i))
			return nil
		}
		if err := q.sleep(ctx, q.pacing); err != nil {
			q.release(gen, batch[i:])
			return err
		}
		if q.superseded(gen) {
			q.logger.Debug("task list cleared, pass abandoned", logging.Int("skipped", len(batch)-i))
			return nil
		}
		result, aerr := q.analyze(ctx, t)
		if ctx.Err() != nil {
			// shutdown: leave the task running so a later Load resumes it
			q.release(gen, batch[i:])
			return ctx.Err()
		}
		q.complete(ctx, gen, t, result, aerr)
	}
	return nil
}

// superseded reports whether Clear or Load replaced the list since gen.
func (q *Queue) superseded(gen uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return gen != q.generation
}

// analyze dispatches t to the analyzer by kind and encodes the report.
func (q *Queue) analyze(ctx context.Context, t *task.Task) (json.RawMessage, error) {
	var (
		rep any
		err error
	)
	switch t.Type.Dispatch() {
	case task.KindToxicity:
		rep, err = q.analyzer.AnalyzeToxicity(ctx, t.Molecule)
	case task.KindProperty:
		rep, err = q.analyzer.AnalyzeProperties(ctx, t.Molecule)
	case task.KindSimilarity:
		db := ""
		if t.Settings != nil {
			db = t.Settings.Database
		}
		rep, err = q.analyzer.SearchSimilar(ctx, t.Molecule, db)
	case task.KindConditions:
		rep, err = q.analyzer.OptimizeConditions(ctx, t.Molecule)
	default:
		rep, err = q.analyzer.PlanSynthesis(ctx, t.Molecule, t.Routes(q.defaultRoutes))
	}
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(rep)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode analysis result")
	}
	return data, nil
}

// complete applies the outcome of t, clears its in-flight marker and
// persists.  Outcomes for tasks removed by Clear are dropped.
func (q *Queue) complete(ctx context.Context, gen uint64, t *task.Task, result json.RawMessage, aerr error) {
	log := q.logger.With(
		logging.String(logging.FieldTaskID, t.ID),
		logging.String(logging.FieldTaskKind, string(t.Type)))

	q.mu.Lock()
	if gen != q.generation {
		q.mu.Unlock()
		log.Info("task cleared while in flight, outcome dropped")
		return
	}
	delete(q.inflight, t.ID)
	cur := q.find(t.ID)
	if cur == nil {
		q.mu.Unlock()
		return
	}

	var ev task.Event = task.Succeeded{Result: result}
	if aerr != nil {
		ev = task.Failed{Cause: aerr}
	}
	if _, err := cur.Apply(ev); err != nil {
		if errors.Is(err, task.ErrEmptyResult) {
			aerr = err
			_, err = cur.Apply(task.Failed{Cause: err})
		}
		if err != nil {
			log.Warn("outcome rejected by task state", logging.Err(err))
		}
	}
	q.persistLocked(ctx, "process")
	snapshot := cur.Clone()
	inflight, running := len(q.inflight), q.countRunningLocked()
	q.mu.Unlock()

	elapsed := q.elapsed(snapshot)
	q.metrics.TaskFinished(snapshot.Type, snapshot.Status, elapsed)
	q.metrics.InFlight(inflight)
	q.metrics.Running(running)

	lt := task.LifecycleCompleted
	if snapshot.Status == task.StatusFailed {
		lt = task.LifecycleFailed
		log.Error("task failed", logging.Err(aerr), logging.Float64("progress", snapshot.Progress))
	} else {
		log.Info("task completed", logging.Duration("elapsed", elapsed))
	}
	q.notify(false)
	q.publish(ctx, lt, snapshot)
}

// release drops the in-flight markers of tasks that were claimed but not
// handled.
func (q *Queue) release(gen uint64, tasks []*task.Task) {
	q.mu.Lock()
	if gen == q.generation {
		for _, t := range tasks {
			delete(q.inflight, t.ID)
		}
	}
	n := len(q.inflight)
	q.mu.Unlock()
	q.metrics.InFlight(n)
}

// ─────────────────────────────────────────────────────────────────────────────
// Progress, clearing and loading
// ─────────────────────────────────────────────────────────────────────────────

// Tick advances the progress estimate of every running task and returns how
// many changed.  The list is not persisted; the next real mutation carries
// the ticked values to storage.
func (q *Queue) Tick() int {
	q.mu.Lock()
	changed := 0
	for _, t := range q.tasks {
		if t.Status != task.StatusRunning {
			continue
		}
		if ok, _ := t.Apply(task.Ticked{}); ok {
			changed++
		}
	}
	q.mu.Unlock()
	if changed > 0 {
		q.notify(true)
	}
	return changed
}

// Clear empties the list, forgets in-flight markers and removes the key from
// the store.  Outcomes of tasks still at the gateway are discarded.
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	n := len(q.tasks)
	q.tasks = nil
	q.inflight = make(map[string]struct{})
	q.generation++
	err := q.store.Clear(ctx, q.key)
	q.mu.Unlock()

	q.metrics.InFlight(0)
	q.metrics.Running(0)
	q.notify(false)
	q.publish(ctx, task.LifecycleCleared, nil)
	if err != nil {
		q.metrics.PersistFailed("clear")
		q.logger.Error("failed to clear task storage", logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeStoreWrite, "clear task storage")
	}
	q.logger.Info("task list cleared", logging.Int("removed", n))
	return nil
}

// Load replaces the list with the persisted one.  A missing key gives an
// empty list; undecodable data is logged and also gives an empty list.
// In-flight markers are reset so running tasks become eligible again.
func (q *Queue) Load(ctx context.Context) error {
	data, err := q.store.Load(ctx, q.key)
	var tasks []*task.Task
	switch {
	case errors.Is(err, task.ErrNotFound):
	case err != nil:
		q.logger.Error("failed to read task storage", logging.Err(err))
		q.replace(nil)
		return errors.Wrap(err, errors.ErrCodeStoreUnavailable, "load task list")
	default:
		tasks, err = task.Decode(data)
		if err != nil {
			q.logger.Warn("stored task list is unreadable, starting empty", logging.Err(err))
			tasks = nil
		}
	}
	q.replace(tasks)
	q.logger.Info("task list loaded", logging.Int("tasks", len(tasks)))
	return nil
}

func (q *Queue) replace(tasks []*task.Task) {
	q.mu.Lock()
	q.tasks = tasks
	q.inflight = make(map[string]struct{})
	q.generation++
	running := q.countRunningLocked()
	q.mu.Unlock()
	q.metrics.InFlight(0)
	q.metrics.Running(running)
	q.notify(false)
}

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// List returns snapshots of all tasks, most recent first.
func (q *Queue) List() []*task.Task {
	return q.ListByStatus("")
}

// ListByStatus returns snapshots of tasks with status s, or all when s is
// empty.
func (q *Queue) ListByStatus(s task.Status) []*task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*task.Task, 0, len(q.tasks))
	for _, t := range q.tasks {
		if s == "" || t.Status == s {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Get returns a snapshot of the task with the given ID.
func (q *Queue) Get(id string) (*task.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t := q.find(id); t != nil {
		return t.Clone(), nil
	}
	return nil, errors.New(errors.ErrCodeTaskNotFound, "task not found").WithDetail("id=" + id)
}

// InFlight reports whether id is currently claimed by a processing pass.
func (q *Queue) InFlight(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.inflight[id]
	return ok
}

// Pending returns the number of running tasks.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.countRunningLocked()
}

// Subscribe returns a channel that receives a signal after the list changes.
// Signals coalesce; a slow reader sees at least one pending signal.  With
// ticks set, progress ticks also signal.  Call cancel to unsubscribe.
func (q *Queue) Subscribe(ticks bool) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	q.subMu.Lock()
	id := q.nextID
	q.nextID++
	q.subs[id] = subscriber{ch: ch, ticks: ticks}
	q.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			q.subMu.Lock()
			delete(q.subs, id)
			q.subMu.Unlock()
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func (q *Queue) find(id string) *task.Task {
	for _, t := range q.tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (q *Queue) countRunningLocked() int {
	n := 0
	for _, t := range q.tasks {
		if t.Status == task.StatusRunning {
			n++
		}
	}
	return n
}

// persistLocked writes the whole list.  Failures are logged and counted;
// the in-memory list stays authoritative.
func (q *Queue) persistLocked(ctx context.Context, op string) {
	data, err := task.Encode(q.tasks)
	if err == nil {
		err = q.store.Save(ctx, q.key, data)
	}
	if err != nil {
		q.metrics.PersistFailed(op)
		q.logger.Error("failed to persist task list", logging.String("op", op), logging.Err(err))
	}
}

func (q *Queue) notify(tick bool) {
	q.subMu.Lock()
	defer q.subMu.Unlock()
	for _, s := range q.subs {
		if tick && !s.ticks {
			continue
		}
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

func (q *Queue) publish(ctx context.Context, typ task.LifecycleType, t *task.Task) {
	if err := q.publisher.Publish(ctx, task.NewLifecycleEvent(typ, t, q.now())); err != nil {
		q.logger.Warn("failed to publish task event", logging.String("type", string(typ)), logging.Err(err))
	}
}

func (q *Queue) elapsed(t *task.Task) time.Duration {
	start, err := time.Parse(time.RFC3339Nano, t.StartTime)
	if err != nil {
		return 0
	}
	if d := q.now().Sub(start); d > 0 {
		return d
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
