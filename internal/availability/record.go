package availability

import (
	"regexp"
	"strconv"
	"strings"
)

// MemMode selects how per-node memory columns are interpreted. The
// allocation-aware scan carries an AllocMem column; the total-only scan is the
// fallback when that query is unavailable.
type MemMode int

const (
	MemModeAllocated MemMode = iota
	MemModeTotal
)

func (m MemMode) String() string {
	if m == MemModeTotal {
		return "total"
	}
	return "allocated"
}

// Thresholds are the per-node eligibility minimums.
type Thresholds struct {
	MinIdleCPUs  int
	MinFreeMemMB int64
}

var DefaultThresholds = Thresholds{MinIdleCPUs: 10, MinFreeMemMB: 32768}

// NodeRecord is one node's reported state within a single scan.
type NodeRecord struct {
	Name       string
	State      string
	IdleCPUs   *int
	TotalMemMB *int64
	AllocMemMB *int64
	GresTotal  map[string]int
	GresUsed   map[string]int
}

// badStates mark nodes that must never receive work. Matched as substrings:
// compound sinfo states like "drained*" or "mixed+drain" carry the marker
// anywhere in the token.
var badStates = []string{"drain", "drng", "down", "fail", "maint"}

// gresPattern matches one GRES entry, e.g. "gpu:h100:4". A column may
// concatenate several entries, including index suffixes like "(IDX:0-3)".
var gresPattern = regexp.MustCompile(`gpu:([^:\s]+):([0-9]+)`)

func healthy(state string) bool {
	if strings.Contains(state, "*") {
		return false
	}
	for _, bad := range badStates {
		if strings.Contains(state, bad) {
			return false
		}
	}
	return true
}

// parseIdleCPUs extracts the idle count from a sinfo CPUsState quadruplet
// "allocated/idle/other/total".
func parseIdleCPUs(field string) *int {
	parts := strings.Split(field, "/")
	if len(parts) != 4 {
		return nil
	}
	for _, p := range parts {
		if _, err := strconv.Atoi(p); err != nil {
			return nil
		}
	}
	idle, _ := strconv.Atoi(parts[1])
	return &idle
}

// parseGres expands a GRES column into a type → slot-count map, summing
// repeated mentions of the same type.
func parseGres(field string) map[string]int {
	out := make(map[string]int)
	for _, m := range gresPattern.FindAllStringSubmatch(field, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		out[m[1]] += n
	}
	return out
}
