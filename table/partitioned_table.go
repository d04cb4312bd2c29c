package table

// ListenerFunc is invoked by a PartitionedTable once per (partition,
// route) change, on that partition's serial db-table task (spec §5).
type ListenerFunc func(partitionID int, route Route)

// PartitionedTable is the external route-table collaborator (spec §6):
// a partitioned, listener-based table the engine registers on once
// and receives one callback per partition per change. The table
// storage itself — indexing, best-path selection, route encoding — is
// out of scope; only this listener protocol is depended upon.
type PartitionedTable interface {
	// Register installs callback under listenerID, the caller-chosen
	// opaque handle used for subsequent per-entry state and
	// Unregister.
	Register(listenerID string, callback ListenerFunc)

	// Unregister removes the listener installed by Register.
	Unregister(listenerID string)

	// Partition returns the handle for table partition i.
	Partition(i int) TablePartition

	// PartitionCount is the number of table partitions.
	PartitionCount() int
}

// TablePartition is the per-partition handle spec §6 describes as
// partition.find/add/delete/notify plus the per-entry listener-state
// slot.
type TablePartition interface {
	// AddForestNodeRoute finds-or-creates the forest-node route for
	// prefix, attaches a path whose next-hop is nextHop and whose
	// source-RD attribute is sourceRD, and notifies the table. This
	// collapses InsertPath+Add+Notify from the original source's
	// AddCMcastRoute into one call, since forest-node route creation
	// is always exactly this shape (spec §4.2.1).
	AddForestNodeRoute(prefix Prefix, nextHop string, sourceRD RouteDistinguisher) Route

	// RemoveForestNodeRoute removes the engine's local-origin path
	// from route; if no paths remain the route is deleted from the
	// table, otherwise it is notified (spec §4.2.1).
	RemoveForestNodeRoute(route Route)

	// Notify schedules route for re-export: a later call into
	// AttributeDB/Forwarder.Export by the table's own export path
	// (spec §4.1, §6).
	Notify(route Route)

	// GetState/SetState/ClearState implement the per-entry opaque
	// listener-state slot keyed by listenerID (spec §6, §9).
	GetState(route Route, listenerID string) ListenerState
	SetState(route Route, listenerID string, state ListenerState)
	ClearState(route Route, listenerID string)
}
