package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

var errNegativeSize = errors.New("must be non-negative")

// ParseSize converts a human-readable size ("25MiB", "500MB", "1024") to
// bytes. SI and IEC suffixes are both accepted and a bare number is bytes.
// Empty and "0" return 0.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)

	if s == "" || s == "0" {
		return 0, nil
	}

	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("invalid size %q: %w", s, errNegativeSize)
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	if n > math.MaxInt64 {
		return 0, fmt.Errorf("invalid size %q: too large", s)
	}

	return int64(n), nil
}

// ParseBandwidth parses a rate such as "5MB/s", "100KiB/s", or "0" into
// bytes per second. The "/s" suffix is optional. Empty and "0" mean
// unlimited.
func ParseBandwidth(s string) (int64, error) {
	s = strings.TrimSpace(s)

	if strings.HasSuffix(strings.ToLower(s), "/s") {
		s = s[:len(s)-len("/s")]
	}

	n, err := ParseSize(s)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth rate: %w", err)
	}

	return n, nil
}
