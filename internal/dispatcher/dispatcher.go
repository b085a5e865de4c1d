package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "workoutbot/pkg/logx"
)

// Job is one trigger action. Errors are captured and recorded, never
// propagated: a failing job can't take down the clock or the worker pool.
type Job func(ctx context.Context) error

type Config struct {
	Workers     int
	QueueSize   int
	HistorySize int
	Timezone    string // IANA TZ, e.g. "Asia/Kolkata"
}

// HistoryItem is one completed firing, kept in a bounded in-memory ring for
// operational introspection. The durable record of delivery outcomes lives in
// the delivery log, not here.
type HistoryItem struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Error    string
}

type runState struct {
	mu      sync.Mutex
	running bool
}

type trigger struct {
	id      string
	spec    string
	job     Job
	entryID cron.EntryID
	state   *runState
}

type task struct {
	id    string
	run   Job
	state *runState
}

// Dispatcher owns the fixed set of recurring triggers: it evaluates their
// cron cadences against a fixed timezone and runs fired actions on a small
// worker pool, separate from any request-handling path.
//
// Registration is idempotent set-insertion keyed by trigger id, so re-entrant
// startup code paths can never produce duplicate firings. A trigger never
// overlaps itself: if a firing is still running when the next one is due, the
// new firing is skipped. Different triggers are independent.
type Dispatcher struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	parser   cron.Parser
	c        *cron.Cron
	triggers map[string]*trigger

	queue    chan task
	stopCh   chan struct{}
	workerWG sync.WaitGroup

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, log logx.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{
		log:      log,
		cfg:      cfg,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		triggers: map[string]*trigger{},
	}
	d.loc = d.loadLocation()
	return d
}

func (d *Dispatcher) loadLocation() *time.Location {
	tz := strings.TrimSpace(d.cfg.Timezone)
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		// Falling back to the host zone would make "07:00" drift with the
		// deployment; UTC at least stays fixed.
		d.log.Warn("invalid timezone, falling back to UTC", logx.String("tz", tz), logx.Err(err))
		return time.UTC
	}
	return loc
}

// Location returns the fixed zone all cadences are evaluated in.
func (d *Dispatcher) Location() *time.Location { return d.loc }

// Register installs a trigger under a unique id. Registering an id that is
// already present is a silent no-op, not an error.
func (d *Dispatcher) Register(id, spec string, job Job) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("trigger id required")
	}
	if job == nil {
		return fmt.Errorf("trigger %s: job required", id)
	}
	if _, err := d.parser.Parse(spec); err != nil {
		return fmt.Errorf("trigger %s: bad spec %q: %w", id, spec, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.triggers[id]; ok {
		d.log.Debug("trigger already registered", logx.String("id", id))
		return nil
	}
	t := &trigger{id: id, spec: spec, job: job, state: &runState{}}
	d.triggers[id] = t
	if d.c != nil {
		if err := d.addCronLocked(t); err != nil {
			delete(d.triggers, id)
			return err
		}
	}
	d.log.Info("trigger registered", logx.String("id", id), logx.String("spec", spec))
	return nil
}

// RegisterDaily installs a trigger firing every day at HH:MM (dispatcher timezone).
func (d *Dispatcher) RegisterDaily(id, atHHMM string, job Job) error {
	h, m, err := parseHHMM(atHHMM)
	if err != nil {
		return fmt.Errorf("trigger %s: %w", id, err)
	}
	return d.Register(id, fmt.Sprintf("%d %d * * *", m, h), job)
}

// RegisterWeekly installs a trigger firing on one weekday at HH:MM (dispatcher timezone).
func (d *Dispatcher) RegisterWeekly(id string, weekday time.Weekday, atHHMM string, job Job) error {
	h, m, err := parseHHMM(atHHMM)
	if err != nil {
		return fmt.Errorf("trigger %s: %w", id, err)
	}
	dow := int(weekday) // Sunday=0
	return d.Register(id, fmt.Sprintf("%d %d * * %d", m, h, dow), job)
}

// TriggerIDs returns the registered ids in sorted order.
func (d *Dispatcher) TriggerIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.triggers))
	for id := range d.triggers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Start launches the cron clock and the worker pool. Starting an
// already-started dispatcher is a no-op.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopCh != nil {
		d.log.Debug("dispatcher already started")
		return
	}
	d.stopCh = make(chan struct{})
	d.queue = make(chan task, d.cfg.QueueSize)

	d.c = cron.New(cron.WithParser(d.parser), cron.WithLocation(d.loc))
	for _, t := range d.triggers {
		if err := d.addCronLocked(t); err != nil {
			d.log.Error("trigger schedule failed", logx.String("id", t.id), logx.Err(err))
		}
	}

	for i := 0; i < d.cfg.Workers; i++ {
		d.workerWG.Add(1)
		go d.worker(ctx)
	}
	d.c.Start()
	d.log.Info("dispatcher started",
		logx.Int("workers", d.cfg.Workers),
		logx.Int("triggers", len(d.triggers)),
		logx.String("tz", d.loc.String()))
}

// Stop halts the clock and waits for workers to drain. In-flight jobs may be
// abandoned at process exit; at most one log entry is lost per abrupt stop.
func (d *Dispatcher) Stop(ctx context.Context) {
	d.mu.Lock()
	if d.stopCh == nil {
		d.mu.Unlock()
		return
	}
	close(d.stopCh)
	d.stopCh = nil
	c := d.c
	d.c = nil
	d.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}

	done := make(chan struct{})
	go func() {
		d.workerWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	d.log.Info("dispatcher stopped")
}

func (d *Dispatcher) addCronLocked(t *trigger) error {
	eid, err := d.c.AddFunc(t.spec, func() {
		t.state.mu.Lock()
		running := t.state.running
		t.state.mu.Unlock()
		if running {
			// The clock never fires the same trigger concurrently with itself.
			d.log.Warn("trigger skipped, previous firing still running", logx.String("id", t.id))
			return
		}
		d.enqueue(task{id: t.id, run: t.job, state: t.state})
	})
	if err == nil {
		t.entryID = eid
	}
	return err
}

func (d *Dispatcher) enqueue(t task) {
	d.mu.Lock()
	q := d.queue
	d.mu.Unlock()
	if q == nil {
		return
	}
	select {
	case q <- t:
	default:
		d.log.Warn("dispatch queue full, dropping firing", logx.String("id", t.id))
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.workerWG.Done()
	d.mu.Lock()
	stopCh := d.stopCh
	q := d.queue
	d.mu.Unlock()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case t := <-q:
			d.execOne(ctx, t)
		}
	}
}

func (d *Dispatcher) execOne(ctx context.Context, t task) {
	t.state.mu.Lock()
	if t.state.running {
		t.state.mu.Unlock()
		return
	}
	t.state.running = true
	t.state.mu.Unlock()
	defer func() {
		t.state.mu.Lock()
		t.state.running = false
		t.state.mu.Unlock()
	}()

	start := time.Now()
	err := runCaptured(ctx, t.run)

	item := HistoryItem{ID: t.id, Started: start, Duration: time.Since(start)}
	if err != nil {
		item.Error = err.Error()
		d.log.Warn("trigger action failed", logx.String("id", t.id), logx.Err(err))
	} else {
		d.log.Info("trigger action ok", logx.String("id", t.id), logx.Duration("took", item.Duration))
	}

	d.hmu.Lock()
	d.history = append(d.history, item)
	if len(d.history) > d.cfg.HistorySize {
		d.history = d.history[len(d.history)-d.cfg.HistorySize:]
	}
	d.hmu.Unlock()
}

// runCaptured converts a job panic into an error so one bad action can never
// terminate the scheduling facility.
func runCaptured(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return job(ctx)
}

// History returns a copy of the bounded firing history.
func (d *Dispatcher) History() []HistoryItem {
	d.hmu.Lock()
	defer d.hmu.Unlock()
	out := make([]HistoryItem, len(d.history))
	copy(out, d.history)
	return out
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
