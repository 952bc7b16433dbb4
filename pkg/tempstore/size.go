package tempstore

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// sizeUnits maps size suffixes to their multipliers.
var sizeUnits = map[byte]int64{
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
}

// ParseSize converts a size setting into bytes. It accepts a plain integer
// ("1048576") or an integer followed by K, M or G ("512K", "2M", "1g").
//
//	n, err := tempstore.ParseSize("2M") // 2097152
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSize)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: %q is negative", ErrInvalidSize, s)
		}
		return n, nil
	}

	unit, ok := sizeUnits[upper(s[len(s)-1])]
	if !ok {
		return 0, fmt.Errorf("%w: %q has unknown unit", ErrInvalidSize, s)
	}

	n, err := strconv.ParseInt(s[:len(s)-1], 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}
	if n > math.MaxInt64/unit {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
	}
	return n * unit, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
