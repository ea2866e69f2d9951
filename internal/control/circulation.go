package control

import (
	"context"
	"time"

	"github.com/aqualogic/pool-core/internal/point"
)

// Circulation tracks how long the pump has run today and publishes the
// remaining daily quota in minutes. The PV evaluator consults the
// remaining value when its ignore-on-circulation flag is set.
type Circulation struct {
	store   *point.Store
	log     Logger
	clock   Clock
	runtime point.RuntimeLog
	loc     *time.Location
	quota   float64
}

// NewCirculation creates the tracker. quotaMin is the daily circulation
// quota in minutes; zero or negative disables the remaining output.
func NewCirculation(store *point.Store, log Logger, clock Clock, runtime point.RuntimeLog, loc *time.Location, quotaMin int) *Circulation {
	if log == nil {
		log = noopLogger{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Circulation{
		store:   store,
		log:     log,
		clock:   clock,
		runtime: runtime,
		loc:     loc,
		quota:   float64(quotaMin),
	}
}

// HandlePump records pump on/off transitions in the runtime log.
func (c *Circulation) HandlePump(ctx context.Context, on bool) {
	if c.runtime == nil {
		return
	}

	now := c.clock.Now()
	var err error
	if on {
		err = c.runtime.RecordStart(ctx, "pump", now)
	} else {
		err = c.runtime.RecordStop(ctx, now)
	}
	if err != nil {
		c.log.Warn("recording pump runtime failed", "error", err)
		return
	}

	c.Refresh(ctx)
}

// Refresh recomputes today's remaining circulation minutes. Also called
// periodically so the value counts down while the pump runs and resets
// at midnight.
func (c *Circulation) Refresh(ctx context.Context) {
	if c.runtime == nil || c.quota <= 0 {
		return
	}

	now := c.clock.Now().In(c.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)

	used, err := c.runtime.MinutesSince(ctx, midnight, now)
	if err != nil {
		c.log.Warn("reading pump runtime failed", "error", err)
		return
	}

	remaining := c.quota - used
	if remaining < 0 {
		remaining = 0
	}
	c.store.WriteFloat(ctx, point.CirculationRemaining, remaining)
}
