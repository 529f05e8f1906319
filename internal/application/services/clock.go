// Package services provides application-level orchestration services
package services

import "time"

// Clock supplies the current time to the tracker services.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
