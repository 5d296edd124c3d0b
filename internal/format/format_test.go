package format

import (
	"testing"
	"time"
)

func TestFormatPreview(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"880837990002364329423517250217571446953178810", "88083..."},
		{"12345", "12345..."},
		{"4", "4..."},
		{"", "..."},
	}
	for _, tt := range tests {
		if got := FormatPreview(tt.in); got != tt.want {
			t.Errorf("FormatPreview(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatElapsedSeconds(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.0000"},
		{123456789 * time.Nanosecond, "0.1235"},
		{2 * time.Second, "2.0000"},
	}
	for _, tt := range tests {
		if got := FormatElapsedSeconds(tt.d); got != tt.want {
			t.Errorf("FormatElapsedSeconds(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatExecutionDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500µs"},
		{15 * time.Millisecond, "15ms"},
		{1500 * time.Millisecond, "1.5s"},
	}
	for _, tt := range tests {
		if got := FormatExecutionDuration(tt.d); got != tt.want {
			t.Errorf("FormatExecutionDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatNumberString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"7", "7"},
		{"999", "999"},
		{"1000", "1,000"},
		{"143", "143"},
		{"1234567", "1,234,567"},
		{"-1234", "-1,234"},
	}
	for _, tt := range tests {
		if got := FormatNumberString(tt.in); got != tt.want {
			t.Errorf("FormatNumberString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{3 << 19, "1.5 MiB"},
		{5 << 30, "5.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
