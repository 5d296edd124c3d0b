package metrics

import "runtime"

// MemorySnapshot holds a point-in-time reading of the Go runtime allocator.
type MemorySnapshot struct {
	HeapAlloc   uint64 // bytes of live heap objects
	TotalAlloc  uint64 // cumulative bytes allocated
	Mallocs     uint64 // cumulative heap allocations
	Sys         uint64 // total bytes obtained from the OS
	NumGC       uint32
	HeapObjects uint64
}

// ReadMemory reads the current allocator statistics.
func ReadMemory() MemorySnapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemorySnapshot{
		HeapAlloc:   m.HeapAlloc,
		TotalAlloc:  m.TotalAlloc,
		Mallocs:     m.Mallocs,
		Sys:         m.Sys,
		NumGC:       m.NumGC,
		HeapObjects: m.HeapObjects,
	}
}

// MemoryDelta is the allocation activity between two snapshots.
type MemoryDelta struct {
	Allocated uint64 // bytes allocated in between
	Mallocs   uint64
	GCCycles  uint32
	HeapAlloc uint64 // live heap at the later snapshot
}

// Since returns the activity from before up to s. Cumulative counters never
// decrease, so the result is well defined when before was read first.
func (s MemorySnapshot) Since(before MemorySnapshot) MemoryDelta {
	return MemoryDelta{
		Allocated: s.TotalAlloc - before.TotalAlloc,
		Mallocs:   s.Mallocs - before.Mallocs,
		GCCycles:  s.NumGC - before.NumGC,
		HeapAlloc: s.HeapAlloc,
	}
}
