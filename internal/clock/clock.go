// Package clock isolates wall-clock reads behind a seam so tests can
// control time without sleeping through real TTLs and blocking waits.
package clock

import "time"

// Clock returns the current time. Production code always uses NowMS; tests
// may swap Clock to a fixed or steppable function.
var Clock = time.Now

// NowMS returns the current wall-clock time as absolute milliseconds.
func NowMS() int64 {
	return Clock().UnixMilli()
}
