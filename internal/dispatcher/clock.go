package dispatcher

import "time"

// Clock supplies "now" in the dispatcher's fixed timezone. Actions derive the
// current day from it rather than from the host clock, so tests can pin a
// specific day and time.
type Clock interface {
	Now() time.Time
}

type zoneClock struct {
	loc *time.Location
}

func (c zoneClock) Now() time.Time { return time.Now().In(c.loc) }

// Clock returns a wall clock bound to the dispatcher's timezone.
func (d *Dispatcher) Clock() Clock { return zoneClock{loc: d.loc} }
