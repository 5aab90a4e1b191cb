// Package formatting provides human-readable formatting and parsing for byte
// sizes and currency amounts.
package formatting

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

var bytesPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// FormatBytes renders n with base-1024 units, e.g. FormatBytes(1536*1024, 1)
// is "1.5 MB". Negative precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}

	if i == 0 {
		return strconv.FormatInt(n, 10) + " B"
	}
	return strconv.FormatFloat(size, 'f', precision, 64) + " " + units[i]
}

// ParseBytes parses sizes like "10MB", "512 kb", "4MiB" or a bare byte count.
// Units are base-1024 regardless of the "i" infix.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	m := bytesPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size: %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size number: %w", err)
	}

	unit := normalizeUnit(m[2])
	idx := slices.Index(units, unit)
	if idx == -1 {
		return 0, fmt.Errorf("unknown byte size unit: %q", m[2])
	}

	for range idx {
		value *= 1024
	}
	return int64(value), nil
}

func normalizeUnit(u string) string {
	u = strings.ToUpper(u)
	switch {
	case u == "":
		return "B"
	case len(u) == 3 && u[1] == 'I' && u[2] == 'B':
		return u[:1] + "B"
	case len(u) == 1 && u != "B":
		return u + "B"
	}
	return u
}
