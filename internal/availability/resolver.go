package availability

import (
	"bufio"
	"strconv"
	"strings"
)

type skipReason int

const (
	skipNone skipReason = iota
	skipUnhealthy
	skipLowCPU
	skipLowMemory
	skipNoGres
)

// Resolve parses one scan's worth of per-node status lines and aggregates free
// GPU slots per type across all eligible nodes. It holds no state between
// calls; occupancy changes continuously, so every pass re-derives everything
// from the given text.
func Resolve(status string, mode MemMode, th Thresholds) (Report, Diagnostics) {
	var diag Diagnostics
	free := make(map[string]int)
	seen := make(map[string]bool)

	sc := bufio.NewScanner(strings.NewReader(status))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			diag.Malformed++
			continue
		}
		// First occurrence wins; the feed may repeat a node across broken
		// multi-line records.
		name := fields[0]
		if seen[name] {
			continue
		}
		seen[name] = true

		rec, reason := parseNode(fields, mode, th)
		switch reason {
		case skipUnhealthy:
			diag.Unhealthy++
		case skipLowCPU:
			diag.LowCPU++
		case skipLowMemory:
			diag.LowMemory++
		case skipNoGres:
			diag.NoGres++
		case skipNone:
			for typ, total := range rec.GresTotal {
				if n := total - rec.GresUsed[typ]; n > 0 {
					free[typ] += n
				}
			}
		}
	}

	return NewReport(free), diag
}

// parseNode applies the eligibility filters in order, short-circuiting at the
// first failure: health, idle CPUs, available memory, GRES presence.
func parseNode(fields []string, mode MemMode, th Thresholds) (NodeRecord, skipReason) {
	rec := NodeRecord{
		Name:  fields[0],
		State: strings.ToLower(fields[1]),
	}

	if !healthy(rec.State) {
		return rec, skipUnhealthy
	}

	rec.IdleCPUs = parseIdleCPUs(fields[2])
	if rec.IdleCPUs == nil || *rec.IdleCPUs < th.MinIdleCPUs {
		return rec, skipLowCPU
	}

	total, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return rec, skipLowMemory
	}
	rec.TotalMemMB = &total
	available := total
	if mode == MemModeAllocated {
		// Missing or unparsable allocation column reads as nothing allocated.
		var alloc int64
		if len(fields) > 4 {
			if n, err := strconv.ParseInt(fields[4], 10, 64); err == nil {
				alloc = n
			}
		}
		rec.AllocMemMB = &alloc
		available = total - alloc
	}
	if available < th.MinFreeMemMB {
		return rec, skipLowMemory
	}

	// GRES columns float with upstream column widths, so they are located by
	// content, not by index: the total column is the first "gpu:"-bearing
	// field past the state/CPU columns.
	gresIdx := -1
	for i := 2; i < len(fields); i++ {
		if strings.Contains(fields[i], "gpu:") {
			gresIdx = i
			break
		}
	}
	if gresIdx < 0 {
		return rec, skipNoGres
	}
	rec.GresTotal = parseGres(fields[gresIdx])

	// The used column, when reported, is the last field. A value identical to
	// the total column means the scan carried no usage data.
	last := fields[len(fields)-1]
	if strings.Contains(last, "gpu:") && last != fields[gresIdx] {
		rec.GresUsed = parseGres(last)
	} else {
		rec.GresUsed = map[string]int{}
	}

	return rec, skipNone
}
