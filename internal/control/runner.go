package control

import (
	"context"
	"time"

	"github.com/aqualogic/pool-core/internal/infrastructure/config"
	"github.com/aqualogic/pool-core/internal/point"
)

// Evaluation cadences.
const (
	// defaultInterval is the periodic re-evaluation cadence. Every
	// evaluator is re-run at this rate regardless of change activity,
	// which is what bounds how long a lost actuator race can last.
	defaultInterval = 60 * time.Second

	// coalesceInterval caps how often a burst of input changes can
	// re-trigger the change-driven PV, heat and solar evaluators.
	coalesceInterval = 250 * time.Millisecond
)

// Runner owns the single evaluation goroutine. Point-change
// notifications and timer expiries are funnelled into one queue and
// executed sequentially, so no evaluator ever preempts another and
// evaluator state needs no locking. The shared-actuator races that
// remain are between this process and external writers, and those are
// resolved by last-writer-wins plus periodic re-evaluation.
type Runner struct {
	store *point.Store
	log   Logger
	clock Clock

	sched  *Scheduler
	owners *Ownership

	frost   *FrostGuard
	solar   *Solar
	pv      *PV
	heat    *Heat
	windows *TimeWindows
	maint   *Maintenance
	fault   *Fault
	status  *Status
	circ    *Circulation

	interval time.Duration
	queue    chan func()
	done     chan struct{}

	// loop-goroutine state.
	ctx     context.Context
	lastRun map[string]time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock overrides the time source (tests).
func WithClock(clock Clock) RunnerOption {
	return func(r *Runner) { r.clock = clock }
}

// WithInterval overrides the periodic evaluation cadence (tests).
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.interval = d }
}

// NewRunner assembles the evaluators from configuration. notify, when
// non-nil, receives human-readable alert messages (collector overheat).
func NewRunner(store *point.Store, log Logger, cfg config.PoolConfig, loc *time.Location, runtime point.RuntimeLog, notify func(string), opts ...RunnerOption) *Runner {
	if log == nil {
		log = noopLogger{}
	}

	r := &Runner{
		store:    store,
		log:      log,
		clock:    RealClock(),
		interval: defaultInterval,
		queue:    make(chan func(), 256),
		done:     make(chan struct{}),
		lastRun:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.sched = NewScheduler(r.clock, r.Enqueue)
	r.owners = NewOwnership()

	r.frost = NewFrostGuard(store, log)
	r.solar = NewSolar(store, log, r.owners, notify)
	r.pv = NewPV(store, log, r.sched, r.owners)
	r.heat = NewHeat(store, log, r.sched, r.owners)
	r.windows = NewTimeWindows(store, log, r.clock, loc, cfg.TimeWindows)
	r.maint = NewMaintenance(store, log, r.sched, cfg.Maintenance.BackwashMin)
	r.status = NewStatus(store)
	r.circ = NewCirculation(store, log, r.clock, runtime, loc, cfg.PV.DailyQuotaMin)

	if cfg.Fault.Enabled {
		r.fault = NewFault(store, log, r.clock, r.sched, cfg.Fault.GraceSeconds)
		r.fault.SetRecheck(func() {
			r.fault.Evaluate(r.ctx)
		})
	}

	return r
}

// Start wires the point subscriptions and launches the evaluation
// goroutine. The runner stops when ctx is cancelled.
func (r *Runner) Start(ctx context.Context) {
	r.ctx = ctx
	r.subscribe()
	go r.loop(ctx)
}

// Done is closed once the evaluation goroutine has exited.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Enqueue hands fn to the evaluation goroutine. Non-blocking: when the
// queue is full the work is dropped, which is safe because every
// decision is re-derived from current state on the next periodic cycle.
func (r *Runner) Enqueue(fn func()) {
	select {
	case r.queue <- fn:
	default:
		r.log.Warn("evaluation queue full, dropping notification")
	}
}

// loop is the evaluation goroutine.
func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	defer r.sched.Stop()

	r.evaluateAll(ctx)
	r.scheduleTick()

	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-r.queue:
			fn()
		}
	}
}

// scheduleTick arms the next periodic evaluation.
func (r *Runner) scheduleTick() {
	r.sched.Schedule("runner", "tick", r.interval, func() {
		r.evaluateAll(r.ctx)
		r.scheduleTick()
	})
}

// evaluateAll runs every evaluator once. Frost runs after the
// mode-scoped evaluators so that within a single sweep its demand wins
// the shared pump.
func (r *Runner) evaluateAll(ctx context.Context) {
	now := r.clock.Now()
	for _, key := range []string{"solar", "pv", "heat"} {
		r.lastRun[key] = now
	}

	r.windows.Evaluate(ctx)
	r.solar.Evaluate(ctx)
	r.pv.Evaluate(ctx)
	r.heat.Evaluate(ctx)
	r.frost.Evaluate(ctx)
	if r.fault != nil {
		r.fault.Evaluate(ctx)
	}
	r.circ.Refresh(ctx)
	r.status.Project(ctx)
}

// coalesced runs fn at most once per coalesceInterval for the given
// key, deferring the trailing run when a burst arrives. Runs on the
// evaluation goroutine.
func (r *Runner) coalesced(key string, fn func(context.Context)) {
	now := r.clock.Now()
	if last, ok := r.lastRun[key]; ok {
		if since := now.Sub(last); since < coalesceInterval {
			r.sched.Schedule("runner", "coalesce:"+key, coalesceInterval-since, func() {
				r.coalesced(key, fn)
			})
			return
		}
	}
	r.lastRun[key] = now
	fn(r.ctx)
}

// subscribe registers the change-driven evaluation paths. Handlers run
// on the writing goroutine and only enqueue; all real work happens on
// the evaluation goroutine.
func (r *Runner) subscribe() {
	pvChange := func(string, point.Value) {
		r.Enqueue(func() { r.coalesced("pv", r.pv.Evaluate) })
	}
	heatChange := func(string, point.Value) {
		r.Enqueue(func() { r.coalesced("heat", r.heat.Evaluate) })
	}
	solarChange := func(string, point.Value) {
		r.Enqueue(func() { r.coalesced("solar", r.solar.Evaluate) })
	}
	statusChange := func(string, point.Value) {
		r.Enqueue(func() { r.status.Project(r.ctx) })
	}

	r.store.Subscribe(point.PVGeneration, pvChange)
	r.store.Subscribe(point.HouseConsumption, pvChange)
	r.store.Subscribe(point.SolarWarning, pvChange)

	r.store.Subscribe(point.PoolTemp, heatChange)
	r.store.Subscribe(point.PoolTemp, solarChange)
	r.store.Subscribe(point.CollectorTemp, solarChange)

	r.store.Subscribe(point.SeasonActive, pvChange)
	r.store.Subscribe(point.SeasonActive, heatChange)

	r.store.Subscribe(point.MaintenanceActive, func(_ string, v point.Value) {
		r.Enqueue(func() {
			r.maint.HandleMaintenance(r.ctx, v.Bool)
			r.heat.Evaluate(r.ctx)
			r.status.Project(r.ctx)
		})
	})
	r.store.Subscribe(point.Backwash, func(_ string, v point.Value) {
		r.Enqueue(func() {
			r.maint.HandleBackwash(r.ctx, v.Bool)
			r.status.Project(r.ctx)
		})
	})
	r.store.Subscribe(point.Mode, func(_ string, v point.Value) {
		r.Enqueue(func() {
			mode, ok := ParseMode(v.Str)
			if !ok {
				r.log.Warn("unrecognised mode written", "mode", v.Str)
				return
			}
			r.maint.HandleMode(r.ctx, mode)
			r.evaluateAll(r.ctx)
		})
	})

	r.store.Subscribe(point.Pump, func(_ string, v point.Value) {
		r.Enqueue(func() {
			if r.fault != nil {
				r.fault.NotePumpChange()
			}
			r.circ.HandlePump(r.ctx, v.Bool)
			r.heat.Evaluate(r.ctx)
			r.status.Project(r.ctx)
		})
	})
	// Fault is not coalesced: the grace windows already absorb bursts,
	// and a real fault reading should never wait out a gate.
	if r.fault != nil {
		r.store.Subscribe(point.PumpPower, func(string, point.Value) {
			r.Enqueue(func() { r.fault.Evaluate(r.ctx) })
		})
	}

	r.store.Subscribe(point.Heater, statusChange)
	r.store.Subscribe(point.Fault, statusChange)
	r.store.Subscribe(point.TimeActive, statusChange)
	r.store.Subscribe(point.PVStatus, statusChange)
}
