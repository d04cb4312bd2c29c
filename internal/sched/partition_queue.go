package sched

import (
	"sync"

	"github.com/eapache/channels"
)

// PartitionQueue is the per-partition single-consumer work queue
// described in spec §4.3/§9: a multi-producer/single-consumer channel,
// built on the same channels.InfiniteChannel primitive the teacher
// uses for Peer.outgoing, so Enqueue from the route-table listener
// callback never blocks regardless of how deep the backlog is.
//
// De-duplication ("an entry is present at most once regardless of how
// many times enqueue is called between drains") is deliberately NOT
// done here by scanning the channel; spec §9 calls for a per-entry
// boolean owned by the caller instead. PartitionQueue only provides
// the FIFO delivery; GroupEntry.onQueue (server package) provides the
// de-duplication.
type PartitionQueue struct {
	ch      *channels.InfiniteChannel
	consume func(item interface{})

	wg sync.WaitGroup
}

func newPartitionQueue(consume func(item interface{})) *PartitionQueue {
	q := &PartitionQueue{
		ch:      channels.NewInfiniteChannel(),
		consume: consume,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *PartitionQueue) run() {
	defer q.wg.Done()
	for item := range q.ch.Out() {
		q.consume(item)
	}
}

// Enqueue pushes item onto the queue. Never blocks.
func (q *PartitionQueue) Enqueue(item interface{}) {
	q.ch.In() <- item
}

// Shutdown closes the queue and blocks until its worker goroutine has
// drained any remaining items and exited.
func (q *PartitionQueue) Shutdown() {
	q.ch.Close()
	q.wg.Wait()
}
