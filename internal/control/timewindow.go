package control

import (
	"context"
	"time"

	"github.com/aqualogic/pool-core/internal/infrastructure/config"
	"github.com/aqualogic/pool-core/internal/point"
)

// window is one parsed weekly schedule entry. Times are minutes since
// midnight; the interval is half-open, [start, end).
type window struct {
	start int
	end   int
	days  map[time.Weekday]bool
}

// TimeWindows switches the pump from a weekly schedule when the system
// is in time mode.
//
// Unlike the other evaluators this one drives the pump's real
// underlying switching point, not the shared logical actuator, so the
// arbitration and ownership machinery stays out of the way of a plain
// wall-clock schedule.
type TimeWindows struct {
	store   *point.Store
	log     Logger
	clock   Clock
	loc     *time.Location
	windows []window
}

// NewTimeWindows creates the schedule evaluator from configuration.
// Disabled and malformed entries are skipped (configuration validation
// reports malformed ones at startup).
func NewTimeWindows(store *point.Store, log Logger, clock Clock, loc *time.Location, cfg []config.TimeWindow) *TimeWindows {
	if log == nil {
		log = noopLogger{}
	}
	if loc == nil {
		loc = time.Local
	}

	t := &TimeWindows{store: store, log: log, clock: clock, loc: loc}
	for _, wc := range cfg {
		if !wc.Enabled {
			continue
		}
		start, err := config.ParseClock(wc.Start)
		if err != nil {
			continue
		}
		end, err := config.ParseClock(wc.End)
		if err != nil {
			continue
		}

		days := make(map[time.Weekday]bool, len(wc.Weekdays))
		for _, d := range wc.Weekdays {
			if wd, ok := config.ParseWeekday(d); ok {
				days[wd] = true
			}
		}
		t.windows = append(t.windows, window{start: start, end: end, days: days})
	}
	return t
}

// Evaluate runs one schedule decision.
func (t *TimeWindows) Evaluate(ctx context.Context) {
	if currentMode(t.store) != ModeTime {
		return
	}

	now := t.clock.Now().In(t.loc)
	minutes := now.Hour()*60 + now.Minute()
	day := now.Weekday()

	active := false
	for _, w := range t.windows {
		if !w.days[day] {
			continue
		}
		if minutes >= w.start && minutes < w.end {
			active = true
			break
		}
	}

	t.store.WriteBool(ctx, point.TimeActive, active)

	if cur, known := t.store.Bool(point.PumpSwitch); !known || cur != active {
		t.log.Info("time window switch", "pump", active)
		t.store.WriteBool(ctx, point.PumpSwitch, active)
	}
}
