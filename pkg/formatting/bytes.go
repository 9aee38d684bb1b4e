// Package formatting provides helpers for rendering and parsing common
// value formats: byte sizes and model output payloads.
package formatting

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// KB is one kilobyte in bytes (base 1024).
	KB int64 = 1 << (10 * (iota + 1))
	// MB is one megabyte in bytes.
	MB
	// GB is one gigabyte in bytes.
	GB
	// TB is one terabyte in bytes.
	TB
)

// FormatBytes renders a byte count in the largest whole unit, base 1024.
func FormatBytes(bytes int64) string {
	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.2f TB", float64(bytes)/float64(TB))
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// ParseBytes parses a human-readable byte size such as "512KB" or "2.5 GB"
// into a byte count. A bare number is interpreted as bytes.
func ParseBytes(value string) (int64, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	if normalized == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	multiplier := int64(1)
	for _, unit := range []struct {
		suffix string
		factor int64
	}{
		{"TB", TB},
		{"GB", GB},
		{"MB", MB},
		{"KB", KB},
		{"B", 1},
	} {
		if strings.HasSuffix(normalized, unit.suffix) {
			multiplier = unit.factor
			normalized = strings.TrimSpace(strings.TrimSuffix(normalized, unit.suffix))
			break
		}
	}

	number, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", value, err)
	}
	if number < 0 {
		return 0, fmt.Errorf("byte size cannot be negative: %q", value)
	}

	return int64(number * float64(multiplier)), nil
}
