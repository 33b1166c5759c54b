package domain

import "time"

// Snapshot is one synchronization cycle's view of the fleet and the
// account. Servers keep the order of the list response. User is nil when
// the profile could not be fetched this cycle.
type Snapshot struct {
	Seq       uint64
	Servers   []ServerDetail
	User      *UserProfile
	Collected time.Time
}
