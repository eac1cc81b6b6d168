package timeutil

import "time"

func NowUnix() int64 {
	return time.Now().Unix()
}

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

func (c Clock) NowUnix() int64 {
	if c == nil {
		return NowUnix()
	}
	return c().Unix()
}
