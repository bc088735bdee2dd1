package timer

import (
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrMisalignedWheel is returned when an appended wheel's span does not
// compose into the next-coarser wheel's step. The hierarchy invariant is
// that a parent's tick equals its child's slot count times the child's
// tick; anything else makes cascade targets ambiguous.
var ErrMisalignedWheel = errors.New("timer: wheel span does not match parent step")

// ErrTimerNotFound backs DelTimerChecked. Plain DelTimer keeps the
// silent-no-op contract for unknown ids; the checked variant is for
// callers that treat a missing id as a bug worth surfacing.
var ErrTimerNotFound = errors.New("timer: timer id not found")

// entry is a scheduled timer: the caller's value, its absolute deadline in
// finest-step ticks, and its current slot so deletion stays O(slot).
type entry[T Timer] struct {
	id       uint64
	val      T
	deadline uint64

	wheel *oneWheel[T]
	slot  int
}

// oneWheel is a single ring in the hierarchy. index tracks the slot the
// wheel currently stands on; it stays equal to
// (elapsed / stepTicks) % len(slots) as the clock advances.
type oneWheel[T Timer] struct {
	name      string
	index     int
	step      uint64 // slot width in the caller's raw units
	stepTicks uint64 // slot width in finest-step ticks
	slots     [][]*entry[T]

	parent *oneWheel[T] // next coarser
	child  *oneWheel[T] // next finer
}

func newOneWheel[T Timer](slots int, step uint64, name string) *oneWheel[T] {
	return &oneWheel[T]{
		name:  name,
		step:  step,
		slots: make([][]*entry[T], slots),
	}
}

func (ow *oneWheel[T]) span() uint64 { return uint64(len(ow.slots)) * ow.stepTicks }

// Wheel is an ordered chain of rings from coarsest (greatest) to finest
// (lessest). Every pending timer occupies exactly one slot of exactly one
// ring; coarse slots hold ranges of deadlines and are re-sieved into finer
// rings as the clock reaches them.
type Wheel[T Timer] struct {
	greatest *oneWheel[T]
	lessest  *oneWheel[T]

	minStep  uint64 // finest slot width, raw units
	allDelta uint64 // raw units consumed so far
	elapsed  uint64 // finest-step ticks consumed so far

	nextID  uint64
	pending map[uint64]*entry[T]

	logger *zap.Logger
}

// NewWheel returns an empty hierarchy. At least one AppendTimerWheel call
// is needed before anything can be scheduled.
func NewWheel[T Timer]() *Wheel[T] {
	return &Wheel[T]{
		pending: make(map[uint64]*entry[T]),
		logger:  zap.NewNop(),
	}
}

// SetLogger replaces the wheel's logger (default is a nop). Cascade and
// fire events are reported at Debug.
func (w *Wheel[T]) SetLogger(logger *zap.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// AppendTimerWheel extends the hierarchy with a new finest ring. Callers
// build coarse-to-fine: each appended ring's slots*step must equal the
// previous ring's step. The hierarchy can only grow while no timers are
// pending, since deadlines are denominated in the finest step.
func (w *Wheel[T]) AppendTimerWheel(slots int, step uint64, name string) error {
	if slots <= 0 || step == 0 {
		return errors.Errorf("timer: wheel %q needs positive slots and step", name)
	}
	if len(w.pending) != 0 {
		return errors.Errorf("timer: cannot append wheel %q with %d timers pending", name, len(w.pending))
	}
	if w.lessest != nil && uint64(slots)*step != w.lessest.step {
		return errors.Wrapf(ErrMisalignedWheel, "wheel %q: %d slots of step %d under parent step %d", name, slots, step, w.lessest.step)
	}

	one := newOneWheel[T](slots, step, name)
	if w.greatest == nil {
		w.greatest = one
	} else {
		w.elapsed *= w.lessest.step / step
		w.lessest.child = one
		one.parent = w.lessest
	}
	w.lessest = one
	w.minStep = step

	// Re-denominate every ring's slot width, and its cursor, in the new
	// finest step.
	for ow := w.greatest; ow != nil; ow = ow.child {
		ow.stepTicks = ow.step / w.minStep
		ow.index = int((w.elapsed / ow.stepTicks) % uint64(len(ow.slots)))
	}
	return nil
}

func (w *Wheel[T]) Len() int      { return len(w.pending) }
func (w *Wheel[T]) IsEmpty() bool { return len(w.pending) == 0 }

// Clear drops every pending timer. The clock keeps its position so ids
// and deadlines of later additions stay monotonic with real time.
func (w *Wheel[T]) Clear() {
	for ow := w.greatest; ow != nil; ow = ow.child {
		for i := range ow.slots {
			ow.slots[i] = nil
		}
	}
	w.pending = make(map[uint64]*entry[T])
}

// AddTimer schedules val at its When() delay and returns the timer's id.
// Ids are monotonic and never reused.
func (w *Wheel[T]) AddTimer(val T) uint64 {
	w.nextID++
	w.schedule(w.nextID, val)
	return w.nextID
}

func (w *Wheel[T]) schedule(id uint64, val T) {
	e := &entry[T]{id: id, val: val, deadline: w.elapsed + val.When()}
	w.pending[id] = e
	w.place(e)
}

// place drops e into the finest ring whose span still reaches its
// remaining delay. A deadline beyond even the coarsest ring's horizon
// parks in that ring's farthest slot and is re-sieved every revolution.
func (w *Wheel[T]) place(e *entry[T]) {
	var remaining uint64
	if e.deadline > w.elapsed {
		remaining = e.deadline - w.elapsed
	}
	for ow := w.lessest; ow != nil; ow = ow.parent {
		if remaining < ow.span() || ow.parent == nil {
			var pos int
			switch {
			case remaining == 0:
				// Already due: the current slot was drained when the
				// clock reached it, so fire on the next tick instead.
				pos = (ow.index + 1) % len(ow.slots)
			case remaining >= ow.span():
				pos = (ow.index + len(ow.slots) - 1) % len(ow.slots)
			default:
				pos = int((e.deadline / ow.stepTicks) % uint64(len(ow.slots)))
			}
			e.wheel = ow
			e.slot = pos
			ow.slots[pos] = append(ow.slots[pos], e)
			return
		}
	}
}

// DelTimer removes a pending timer by id. Unknown ids are a silent no-op.
func (w *Wheel[T]) DelTimer(id uint64) bool {
	e, ok := w.pending[id]
	if !ok {
		return false
	}
	delete(w.pending, id)
	slot := e.wheel.slots[e.slot]
	for i, x := range slot {
		if x == e {
			e.wheel.slots[e.slot] = append(slot[:i], slot[i+1:]...)
			break
		}
	}
	return true
}

// DelTimerChecked is like DelTimer but reports an unknown id as a
// wrapped ErrTimerNotFound.
func (w *Wheel[T]) DelTimerChecked(id uint64) error {
	if !w.DelTimer(id) {
		return errors.Wrapf(ErrTimerNotFound, "id %d", id)
	}
	return nil
}

// GetDelayID returns the smallest remaining delay among pending timers, in
// finest-step ticks, and false when nothing is scheduled.
func (w *Wheel[T]) GetDelayID() (uint64, bool) {
	var best uint64
	found := false
	for _, e := range w.pending {
		var r uint64
		if e.deadline > w.elapsed {
			r = e.deadline - w.elapsed
		}
		if !found || r < best {
			best = r
			found = true
		}
	}
	return best, found
}

// UpdateDeltatime advances the clock by delta raw units and returns every
// expired value in ascending deadline order.
func (w *Wheel[T]) UpdateDeltatime(delta uint64) []T {
	fired := w.expire(delta)
	if len(fired) == 0 {
		return nil
	}
	vals := make([]T, len(fired))
	for i, e := range fired {
		vals[i] = e.val
	}
	return vals
}

// UpdateNowWithCallback advances the clock to the absolute time now (same
// raw units as UpdateDeltatime's accumulated total) and hands each expired
// value to f. When f returns again=true the value is rescheduled at its
// new When() under its original id; otherwise it is returned. now values
// that do not move the clock forward are ignored.
func (w *Wheel[T]) UpdateNowWithCallback(now uint64, f func(*Wheel[T], T) (T, bool)) []T {
	if now <= w.allDelta {
		return nil
	}
	fired := w.expire(now - w.allDelta)
	var out []T
	for _, e := range fired {
		if next, again := f(w, e.val); again {
			w.schedule(e.id, next)
			continue
		}
		out = append(out, e.val)
	}
	return out
}

// expire consumes delta raw units tick by tick, collecting fired entries.
func (w *Wheel[T]) expire(delta uint64) []*entry[T] {
	w.allDelta += delta
	if w.lessest == nil || w.minStep == 0 {
		return nil
	}
	target := w.allDelta / w.minStep

	var fired []*entry[T]
	for w.elapsed < target {
		w.elapsed++
		w.advance(w.lessest, &fired)
	}
	sort.Slice(fired, func(i, j int) bool {
		if fired[i].deadline != fired[j].deadline {
			return fired[i].deadline < fired[j].deadline
		}
		return fired[i].id < fired[j].id
	})
	if len(fired) > 0 {
		w.logger.Debug("timers fired",
			zap.Int("count", len(fired)),
			zap.Uint64("elapsed", w.elapsed))
	}
	return fired
}

// advance moves ow one slot forward. A wrap back to slot zero first
// advances the parent ring, whose newly-reached slot is then drained: its
// entries hold a range of deadlines, so each is either due now or
// re-sieved down into a finer ring. Skipping that re-sieve would leak
// coarse-slot timers past their deadline.
func (w *Wheel[T]) advance(ow *oneWheel[T], fired *[]*entry[T]) {
	ow.index = (ow.index + 1) % len(ow.slots)
	if ow.index == 0 && ow.parent != nil {
		w.advance(ow.parent, fired)
	}

	slot := ow.slots[ow.index]
	if len(slot) == 0 {
		return
	}
	ow.slots[ow.index] = nil
	cascaded := 0
	for _, e := range slot {
		if e.deadline <= w.elapsed {
			delete(w.pending, e.id)
			*fired = append(*fired, e)
		} else {
			w.place(e)
			cascaded++
		}
	}
	if cascaded > 0 {
		w.logger.Debug("cascade",
			zap.String("wheel", ow.name),
			zap.Int("count", cascaded),
			zap.Uint64("elapsed", w.elapsed))
	}
}
