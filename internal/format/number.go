// Package format holds pure string formatting helpers shared by the CLI and
// the application layer.
package format

import (
	"fmt"
	"strings"
)

// PreviewLength is the number of leading characters kept by FormatPreview.
const PreviewLength = 5

// FormatPreview returns the first PreviewLength characters of s followed by
// "...". A string of at most PreviewLength characters is still suffixed, so
// every summary line has the same shape.
func FormatPreview(s string) string {
	if len(s) > PreviewLength {
		s = s[:PreviewLength]
	}
	return s + "..."
}

// FormatNumberString inserts thousands separators into a decimal string.
// A leading minus sign is preserved.
func FormatNumberString(s string) string {
	if s == "" {
		return ""
	}
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	var b strings.Builder
	b.Grow(len(sign) + n + (n-1)/3)
	b.WriteString(sign)
	first := n % 3
	if first == 0 {
		first = 3
	}
	b.WriteString(s[:first])
	for i := first; i < n; i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatBytes renders a byte count with a binary unit, e.g. "1.5 MiB".
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
