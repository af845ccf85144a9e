package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/sweeney/curtain-controller/internal/logic"
)

// SystemFault is one observed collaborator failure. Append-only; faults
// never block any component — a faulted source is simply skipped until it
// recovers.
type SystemFault struct {
	ID          string
	Source      logic.FaultSource
	At          time.Time
	Description string
}

// faultRing is a fixed-capacity FIFO of recent faults. Oldest entries are
// overwritten on overflow. Not safe for concurrent use — the Store's lock
// covers it.
type faultRing struct {
	buf      []SystemFault
	capacity int
	head     int // next write position
	count    int
}

func newFaultRing(capacity int) *faultRing {
	return &faultRing{
		buf:      make([]SystemFault, capacity),
		capacity: capacity,
	}
}

func (r *faultRing) push(source logic.FaultSource, at time.Time, description string) {
	f := SystemFault{
		ID:          uuid.NewString(),
		Source:      source,
		At:          at,
		Description: description,
	}
	r.buf[r.head] = f
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
}

// recent returns the stored faults, oldest first.
func (r *faultRing) recent() []SystemFault {
	if r.count == 0 {
		return nil
	}
	result := make([]SystemFault, r.count)
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}
	return result
}

func (r *faultRing) len() int {
	return r.count
}
