package refs

import "sync/atomic"

// Statistics contains counters describing the activity of a Tracker
type Statistics struct {
	Tracked        int   // buffers currently tracked
	Forks          int64 // shared buffers copied before a write
	ForkedElements int64 // elements copied by those forks
	ForkedBytes    int64 // bytes copied by those forks
	InPlace        int64 // writes granted without copying
	ReleasedOwners int64 // owners released, explicitly or once unreachable
}

type counters struct {
	forks          atomic.Int64
	forkedElements atomic.Int64
	forkedBytes    atomic.Int64
	inPlace        atomic.Int64
	releasedOwners atomic.Int64
}

// Stats returns a snapshot of this Tracker's Statistics
func (t *Tracker) Stats() Statistics {
	return Statistics{
		Tracked:        t.Len(),
		Forks:          t.stats.forks.Load(),
		ForkedElements: t.stats.forkedElements.Load(),
		ForkedBytes:    t.stats.forkedBytes.Load(),
		InPlace:        t.stats.inPlace.Load(),
		ReleasedOwners: t.stats.releasedOwners.Load(),
	}
}
