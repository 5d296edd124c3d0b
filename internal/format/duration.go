package format

import (
	"fmt"
	"time"
)

// FormatExecutionDuration picks the unit a reader expects for d: whole
// microseconds below 1ms, whole milliseconds below 1s, time.Duration's own
// notation above.
func FormatExecutionDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return d.String()
	}
}

// FormatElapsedSeconds is the "Elapsed Time" rendering: seconds, four decimals.
func FormatElapsedSeconds(d time.Duration) string {
	return fmt.Sprintf("%.4f", d.Seconds())
}
