package shv

import "time"

// civilToEpochMs converts a UTC civil date/time to Unix epoch
// milliseconds. Used by the Cpon reader, which parses dates as broken-out
// fields rather than an offset from an epoch.
func civilToEpochMs(year, month, day, hour, minute, sec int) int64 {
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	return t.UnixMilli()
}

// epochMsToCivil is the inverse of civilToEpochMs, additionally returning
// the millisecond-of-second component for the Cpon writer's fractional
// seconds field.
func epochMsToCivil(epochMs int64) (year, month, day, hour, minute, sec, msec int) {
	t := time.UnixMilli(epochMs).UTC()
	return t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond() / int(time.Millisecond)
}
