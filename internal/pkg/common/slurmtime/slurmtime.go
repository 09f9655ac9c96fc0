package slurmtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Limit is a walltime limit as Slurm reports it, e.g. a partition's TIMELIMIT
// column. Unlimited covers the literals "infinite" and "unlimited"; otherwise
// Duration holds the parsed value.
type Limit struct {
	Unlimited bool
	Duration  time.Duration
}

// Admits reports whether a job constrained by want fits under l.
// An unlimited want only fits under an unlimited limit.
func (l Limit) Admits(want Limit) bool {
	if l.Unlimited {
		return true
	}
	if want.Unlimited {
		return false
	}
	return l.Duration >= want.Duration
}

func (l Limit) String() string {
	if l.Unlimited {
		return "infinite"
	}
	d := int64(l.Duration / (24 * time.Hour))
	rest := l.Duration % (24 * time.Hour)
	h := int64(rest / time.Hour)
	m := int64(rest % time.Hour / time.Minute)
	s := int64(rest % time.Minute / time.Second)
	if d > 0 {
		return fmt.Sprintf("%d-%02d:%02d:%02d", d, h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Parse parses Slurm walltime syntax: "D-HH:MM:SS", "D-HH:MM", "D-HH",
// "HH:MM:SS", "MM:SS", a bare minute count "MM", and the literals
// "infinite"/"unlimited".
func Parse(s string) (Limit, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return Limit{}, fmt.Errorf("empty time limit")
	}
	switch strings.ToLower(v) {
	case "infinite", "unlimited":
		return Limit{Unlimited: true}, nil
	}

	var days int64
	rest := v
	if i := strings.IndexByte(v, '-'); i >= 0 {
		d, err := parseField(v[:i])
		if err != nil {
			return Limit{}, fmt.Errorf("invalid time limit %q: %w", s, err)
		}
		days = d
		rest = v[i+1:]
	}

	parts := strings.Split(rest, ":")
	if len(parts) > 3 {
		return Limit{}, fmt.Errorf("invalid time limit %q", s)
	}
	nums := make([]int64, 0, 3)
	for _, p := range parts {
		n, err := parseField(p)
		if err != nil {
			return Limit{}, fmt.Errorf("invalid time limit %q: %w", s, err)
		}
		nums = append(nums, n)
	}

	var dur time.Duration
	if days > 0 || strings.IndexByte(v, '-') >= 0 {
		// With a day prefix the remainder reads HH[:MM[:SS]].
		dur = time.Duration(days) * 24 * time.Hour
		units := []time.Duration{time.Hour, time.Minute, time.Second}
		for i, n := range nums {
			dur += time.Duration(n) * units[i]
		}
		return Limit{Duration: dur}, nil
	}

	// Without days: MM, MM:SS or HH:MM:SS.
	switch len(nums) {
	case 1:
		dur = time.Duration(nums[0]) * time.Minute
	case 2:
		dur = time.Duration(nums[0])*time.Minute + time.Duration(nums[1])*time.Second
	case 3:
		dur = time.Duration(nums[0])*time.Hour + time.Duration(nums[1])*time.Minute + time.Duration(nums[2])*time.Second
	}
	return Limit{Duration: dur}, nil
}

func parseField(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty field")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("not a non-negative integer: %q", s)
	}
	return n, nil
}
