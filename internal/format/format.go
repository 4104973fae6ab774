// Package format renders lap times for chat messages.
package format

import "fmt"

// Ms renders n milliseconds as MM:SS.mmm. Minutes are not capped; a
// 60-minute lap renders as "60:00.000" (spec §4.6).
func Ms(n uint32) string {
	minutes := n / 60_000
	seconds := (n / 1000) % 60
	millis := n % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}
