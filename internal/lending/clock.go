package lending

import "time"

// Clock supplies the current time. The engine never calls time.Now directly
// so that due-date and fine arithmetic is testable with a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }
