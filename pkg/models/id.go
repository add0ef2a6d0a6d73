package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseID validates caller-supplied id text: base-10, non-negative and within
// the 32-bit range used by the MovieLens dataset. It never substitutes a
// default for malformed input.
func ParseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("id is empty")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("id %q is not an integer", s)
	}
	if n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("id %d is out of range", n)
	}
	return n, nil
}
