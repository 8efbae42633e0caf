package parse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// Timespan parses a search time bound. It accepts Go durations ("36h"),
// relative terms made of days and weeks ("3d", "1w2d", "3 days") and the
// words "unbounded" or "ever", which return 0.
func Timespan(s string) (time.Duration, error) {
	s0 := s
	s = strings.ToLower(strings.ReplaceAll(s, " ", ""))
	switch s {
	case "", "0", "unbounded", "ever":
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("negative timespan: %s", s0)
		}
		return d, nil
	}
	var total time.Duration
	for s != "" {
		i := 0
		for i < len(s) && '0' <= s[i] && s[i] <= '9' {
			i++
		}
		if i == 0 {
			return 0, fmt.Errorf("not a valid timespan: %s", s0)
		}
		n, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, fmt.Errorf("cannot read integer in %s", s0)
		}
		s = s[i:]
		j := 0
		for j < len(s) && (s[j] < '0' || s[j] > '9') {
			j++
		}
		if j == 0 {
			return 0, fmt.Errorf("missing unit in %s", s0)
		}
		switch s[0] {
		case 'w':
			total += time.Duration(n) * 7 * day
		case 'd':
			total += time.Duration(n) * day
		default:
			return 0, fmt.Errorf("unknown unit %s in %s", s[:j], s0)
		}
		s = s[j:]
	}
	return total, nil
}

// Window parses a search message count bound. "unbounded", "all" and 0
// mean no bound.
func Window(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unbounded", "all":
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("not a valid window: %s", s)
	}
	return n, nil
}
