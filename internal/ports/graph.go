package ports

import "poetry-export/internal/types"

// LockGraphPort loads an already-resolved lock graph. location is a
// project directory or a graph snapshot file depending on the adapter.
type LockGraphPort interface {
	LoadGraph(location string) (types.LockGraph, error)
}

// LockGraphWriterPort persists a lock graph as a snapshot.
type LockGraphWriterPort interface {
	WriteGraph(path string, graph types.LockGraph) error
}
