package domain

import "time"

// LocalState is the persisted client tree of one store.
type LocalState struct {
	StoreName     string
	SchemaVersion int
	RootClientID  string
	Tree          *Snapshot
	UpdatedAt     time.Time
	LastSyncedAt  *time.Time
}
