// Package sched models the process-wide named task scheduler from
// spec §5: one class, "db-table", sharded by partition-id so that, for
// any given partition-id, at most one task runs at a time. It is the
// Go equivalent of TaskScheduler::GetTaskId("db::DBTable") plus a
// per-partition WorkQueue in the original source, built the way the
// teacher builds Peer.outgoing: a channels.InfiniteChannel draining on
// a single goroutine.
package sched

import "sync"

// TaskClassName is the name of the db-table task class (spec §5, §6).
const TaskClassName = "db-table"

// Scheduler hands out one PartitionQueue per partition id within a
// named task class. Two calls to Queue with the same class and
// partition id return the same queue; this is what guarantees that,
// for a given partition-id, at most one goroutine ever drains its
// work.
type Scheduler struct {
	mu      sync.Mutex
	classes map[string]map[int]*PartitionQueue
}

// NewScheduler returns a ready-to-use Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{classes: make(map[string]map[int]*PartitionQueue)}
}

// Queue returns the single-consumer work queue for (class, partitionID),
// creating and starting its worker goroutine on first use. consume is
// invoked, on that one goroutine, for every item enqueued.
func (s *Scheduler) Queue(class string, partitionID int, consume func(item interface{})) *PartitionQueue {
	s.mu.Lock()
	defer s.mu.Unlock()

	byPartition, ok := s.classes[class]
	if !ok {
		byPartition = make(map[int]*PartitionQueue)
		s.classes[class] = byPartition
	}
	if q, ok := byPartition[partitionID]; ok {
		return q
	}

	q := newPartitionQueue(consume)
	byPartition[partitionID] = q
	return q
}

// Shutdown stops every queue the scheduler ever handed out and waits
// for their worker goroutines to exit.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, byPartition := range s.classes {
		for _, q := range byPartition {
			q.Shutdown()
		}
	}
}
