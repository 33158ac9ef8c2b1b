package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type timerKind int

const (
	revealTimer timerKind = iota
	advanceTimer
	cleanupTimer
)

func (k timerKind) String() string {
	switch k {
	case revealTimer:
		return "reveal"
	case advanceTimer:
		return "advance"
	case cleanupTimer:
		return "cleanup"
	default:
		return "unknown"
	}
}

type timerKey struct {
	pin  string
	kind timerKind
}

type armedTimer struct {
	timer clockwork.Timer
	gen   uint64
}

// timerSet keeps at most one pending timer per (pin, kind). Callers must hold
// lock when calling arm/cancel; fired callbacks acquire it themselves and only
// run if they are still the current generation for their key.
type timerSet struct {
	clock  clockwork.Clock
	lock   sync.Locker
	gen    uint64
	active map[timerKey]armedTimer
}

func newTimerSet(clock clockwork.Clock, lock sync.Locker) *timerSet {
	return &timerSet{
		clock:  clock,
		lock:   lock,
		active: make(map[timerKey]armedTimer),
	}
}

// arm replaces any pending timer of the same kind for pin.
func (t *timerSet) arm(pin string, kind timerKind, d time.Duration, fire func()) {
	key := timerKey{pin: pin, kind: kind}
	if t.cancel(pin, kind) {
		log.Debug().Str("pin", pin).Stringer("timer", kind).Msg("replaced pending timer")
	}

	t.gen++
	gen := t.gen
	timer := t.clock.AfterFunc(d, func() {
		t.lock.Lock()
		defer t.lock.Unlock()

		current, ok := t.active[key]
		if !ok || current.gen != gen {
			return
		}
		delete(t.active, key)
		log.Debug().Str("pin", pin).Stringer("timer", kind).Msg("timer fired")
		fire()
	})
	t.active[key] = armedTimer{timer: timer, gen: gen}
}

// cancel stops the pending timer of kind for pin, reporting whether one existed.
func (t *timerSet) cancel(pin string, kind timerKind) bool {
	key := timerKey{pin: pin, kind: kind}
	armed, ok := t.active[key]
	if !ok {
		return false
	}
	armed.timer.Stop()
	delete(t.active, key)
	return true
}

func (t *timerSet) cancelAll(pin string) {
	for _, kind := range []timerKind{revealTimer, advanceTimer, cleanupTimer} {
		t.cancel(pin, kind)
	}
}

func (t *timerSet) pending(pin string, kind timerKind) bool {
	_, ok := t.active[timerKey{pin: pin, kind: kind}]
	return ok
}

func (t *timerSet) stopAll() {
	for key, armed := range t.active {
		armed.timer.Stop()
		delete(t.active, key)
	}
}
