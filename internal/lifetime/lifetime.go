// Package lifetime implements the three-callback drain-to-delete
// protocol used to tear down the tree manager cleanly: an external
// lifetime coordinator polls MayDelete, and the owner pokes the
// coordinator via Coordinator.Poke whenever it may have become true. It
// generalizes the LifetimeActor/DeleteActor pair in
// original_source/src/bgp/bgp_multicast.cc, whose equivalent
// Enqueue/MayResumeDelete calls always run on the separate
// "bgp::Config" task rather than on any "db::DBTable" partition task
// (CHECK_CONCURRENCY("bgp::Config") guards them in the original) — so
// a Destroy that blocks waiting for a db-table worker to quiesce can
// never do so from that same worker. Coordinator reproduces that by
// running every Shutdown/MayDelete/Destroy call on its own dedicated
// goroutine, fed by a channels.InfiniteChannel the same way
// sched.PartitionQueue feeds its worker, rather than on whatever
// goroutine happened to call Enqueue or Poke.
package lifetime

import (
	"sync"

	"github.com/eapache/channels"
)

// Actor is anything participating in the drain-to-delete protocol.
// MayDelete must be safe to call at any time and answer truthfully
// whether the actor has drained enough to be destroyed. Shutdown is
// called once, when deletion is first requested, to let the actor
// begin any cooperative wind-down. Destroy is called exactly once,
// after MayDelete first reports true following a ManagedDelete.
type Actor interface {
	MayDelete() bool
	Shutdown()
	Destroy()
}

// Coordinator is the external lifetime manager: actors are enqueued
// for possible destruction, and the coordinator destroys each once
// its MayDelete() becomes true. Every Enqueue/Poke request is
// processed serially on the coordinator's own worker goroutine, never
// synchronously on the caller's, so a Destroy that shuts down a
// partition worker can never be called from that same worker.
type Coordinator struct {
	pending map[Actor]bool

	ch *channels.InfiniteChannel
	wg sync.WaitGroup
}

// NewCoordinator returns a ready-to-use Coordinator and starts its
// worker goroutine.
func NewCoordinator() *Coordinator {
	c := &Coordinator{
		pending: make(map[Actor]bool),
		ch:      channels.NewInfiniteChannel(),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

type coordinatorRequest struct {
	actor Actor
	poke  bool
}

func (c *Coordinator) run() {
	defer c.wg.Done()
	for item := range c.ch.Out() {
		switch req := item.(type) {
		case coordinatorRequest:
			if req.poke {
				c.handlePoke(req.actor)
			} else {
				c.handleEnqueue(req.actor)
			}
		case func():
			req()
		}
	}
}

// Enqueue requests eventual destruction of actor. The request is
// processed asynchronously on the coordinator's worker goroutine: if
// actor.MayDelete() already holds by the time it is processed,
// destruction happens there; otherwise actor is remembered and
// Coordinator.Poke must be called (typically from the actor's own
// MayResumeDelete) once conditions change.
func (c *Coordinator) Enqueue(actor Actor) {
	c.ch.In() <- coordinatorRequest{actor: actor}
}

// Poke re-evaluates actor's MayDelete and destroys it if ready. The
// owning subsystem calls this (as MayResumeDelete) every time its
// internal state changes in a way that could make deletion possible,
// e.g. a ManagerPartition's index becoming empty. Like Enqueue, this
// only schedules the check onto the coordinator's own worker; it never
// runs actor.MayDelete/Destroy on the calling goroutine.
func (c *Coordinator) Poke(actor Actor) {
	c.ch.In() <- coordinatorRequest{actor: actor, poke: true}
}

func (c *Coordinator) handleEnqueue(actor Actor) {
	if c.pending[actor] {
		return
	}
	actor.Shutdown()
	if actor.MayDelete() {
		actor.Destroy()
		return
	}
	c.pending[actor] = true
}

func (c *Coordinator) handlePoke(actor Actor) {
	if !c.pending[actor] {
		return
	}
	if !actor.MayDelete() {
		return
	}
	delete(c.pending, actor)
	actor.Destroy()
}

// Flush blocks until every Enqueue/Poke call made before it returns
// has finished processing on the coordinator's worker goroutine.
// Tests use this the same way task_util::WaitForIdle is used against
// TaskScheduler in the original codebase's own test harnesses, to
// observe state deterministically after asynchronous work settles.
func (c *Coordinator) Flush() {
	done := make(chan struct{})
	c.ch.In() <- func() { close(done) }
	<-done
}

// Close stops the coordinator's worker goroutine once every
// previously enqueued request has drained.
func (c *Coordinator) Close() {
	c.ch.Close()
	c.wg.Wait()
}
