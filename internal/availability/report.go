package availability

import (
	"fmt"
	"sort"
	"strings"
)

// Report holds the GPU types with free capacity after one resolver pass.
// Types with zero or negative free counts are never stored.
type Report struct {
	free map[string]int
}

// NewReport builds a report from a type → free-count map, dropping
// non-positive entries.
func NewReport(free map[string]int) Report {
	r := Report{free: make(map[string]int, len(free))}
	for t, n := range free {
		if n > 0 {
			r.free[t] = n
		}
	}
	return r
}

func (r Report) Empty() bool { return len(r.free) == 0 }

// Has reports whether typ has at least one free slot.
func (r Report) Has(typ string) bool { return r.free[typ] > 0 }

// Free returns the free slot count for typ, 0 when absent.
func (r Report) Free(typ string) int { return r.free[typ] }

// FreeMap returns a copy of the type → free-count map.
func (r Report) FreeMap() map[string]int {
	out := make(map[string]int, len(r.free))
	for t, n := range r.free {
		out[t] = n
	}
	return out
}

// Types returns the available GPU types in lexicographic order.
func (r Report) Types() []string {
	types := make([]string, 0, len(r.free))
	for t := range r.free {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Presence renders the report as space-separated sorted type names.
func (r Report) Presence() string {
	return strings.Join(r.Types(), " ")
}

// Counts renders the report as space-separated sorted "type:count" pairs.
func (r Report) Counts() string {
	pairs := make([]string, 0, len(r.free))
	for _, t := range r.Types() {
		pairs = append(pairs, fmt.Sprintf("%s:%d", t, r.free[t]))
	}
	return strings.Join(pairs, " ")
}

// Diagnostics counts nodes excluded from a report, by filter stage. It travels
// with the report so the resolver stays a pure function of its input.
type Diagnostics struct {
	Malformed int `json:"malformed"`
	Unhealthy int `json:"unhealthy"`
	LowCPU    int `json:"low_cpu"`
	LowMemory int `json:"low_memory"`
	NoGres    int `json:"no_gres"`
}

// EligibilitySkips counts nodes rejected by the health, CPU or memory filters.
// Malformed lines and GPU-less nodes are expected in any scan and excluded.
func (d Diagnostics) EligibilitySkips() int {
	return d.Unhealthy + d.LowCPU + d.LowMemory
}
