package hsmcore

import (
	"container/heap"
	"time"

	"github.com/austenlm/hsmcore/internal/idgen"
)

// timerEntry is one armed, one-shot timeout: a state entry whose vertex
// declared a Timeout duration. epoch disambiguates successive entries of
// the same vertex so a timer disarmed on exit can never be mistaken,
// after a later re-entry, for the new entry's timer.
type timerEntry struct {
	vertex   idgen.ID
	epoch    uint64
	deadline time.Time
	index    int
}

// timerHeap is a container/heap.Interface min-heap keyed by deadline. No
// third-party scheduling library covers this, so it is built on
// container/heap (see DESIGN.md).
type timerHeap []*timerEntry

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

type timerCmd struct {
	arm          *timerEntry
	cancelVertex idgen.ID
	stop         bool
}

// timerScheduler owns one goroutine and a min-heap of armed timers. Arm and
// Cancel are safe to call from any goroutine; the heap itself is only ever
// touched by the scheduler's own goroutine, so it needs no lock.
type timerScheduler struct {
	cmds chan timerCmd
	fire func(vertex idgen.ID, epoch uint64)
	done chan struct{}
}

func newTimerScheduler(fire func(idgen.ID, uint64)) *timerScheduler {
	return &timerScheduler{
		cmds: make(chan timerCmd, 64),
		fire: fire,
		done: make(chan struct{}),
	}
}

func (s *timerScheduler) start() { go s.run() }

func (s *timerScheduler) stop() {
	select {
	case s.cmds <- timerCmd{stop: true}:
	case <-s.done:
	}
	<-s.done
}

// arm schedules a timeout for vertex at epoch, d from now. Any previously
// armed timer for the same vertex is replaced (a vertex is only ever
// active once at a time, so at most one of its timers is ever live).
func (s *timerScheduler) arm(vertex idgen.ID, epoch uint64, d time.Duration) {
	s.cmds <- timerCmd{arm: &timerEntry{vertex: vertex, epoch: epoch, deadline: time.Now().Add(d)}}
}

// cancel disarms vertex's outstanding timer, if any, on state exit.
func (s *timerScheduler) cancel(vertex idgen.ID) {
	s.cmds <- timerCmd{cancelVertex: vertex}
}

func (s *timerScheduler) run() {
	defer close(s.done)

	h := &timerHeap{}
	heap.Init(h)
	active := make(map[idgen.ID]*timerEntry)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	resetTimer := func() {
		timer.Stop()
		select {
		case <-timer.C:
		default:
		}
		if h.Len() > 0 {
			d := time.Until((*h)[0].deadline)
			if d < 0 {
				d = 0
			}
			timer.Reset(d)
		}
	}

	for {
		select {
		case cmd := <-s.cmds:
			if cmd.stop {
				return
			}
			if cmd.arm != nil {
				if old, ok := active[cmd.arm.vertex]; ok {
					heap.Remove(h, old.index)
				}
				heap.Push(h, cmd.arm)
				active[cmd.arm.vertex] = cmd.arm
			}
			if cmd.cancelVertex != "" {
				if old, ok := active[cmd.cancelVertex]; ok {
					heap.Remove(h, old.index)
					delete(active, cmd.cancelVertex)
				}
			}
			resetTimer()
		case <-timer.C:
			if h.Len() == 0 {
				continue
			}
			entry := heap.Pop(h).(*timerEntry)
			delete(active, entry.vertex)
			s.fire(entry.vertex, entry.epoch)
			resetTimer()
		}
	}
}
