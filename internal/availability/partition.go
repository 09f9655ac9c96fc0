package availability

import (
	"sort"
	"strings"

	"github.com/ktolnos/slurm-utils/internal/pkg/common/slurmtime"
)

// ParsePartitionLimits extracts partition → max-walltime pairs from a
// partition listing. Lines are pattern-matched rather than parsed strictly:
// the first field is the partition name, the first following field that reads
// as a Slurm time limit is its maximum; anything else on the line is ignored.
// Lines with no recognizable limit (headers, noise) are dropped.
func ParsePartitionLimits(text string) map[string]slurmtime.Limit {
	limits := make(map[string]slurmtime.Limit)
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// sinfo flags the default partition with a trailing "*".
		name := strings.TrimSuffix(fields[0], "*")
		if name == "" {
			continue
		}
		for _, f := range fields[1:] {
			limit, err := slurmtime.Parse(f)
			if err != nil {
				continue
			}
			if _, ok := limits[name]; !ok {
				limits[name] = limit
			}
			break
		}
	}
	return limits
}

// EligiblePartitions returns, sorted, the partitions whose limit admits want.
func EligiblePartitions(limits map[string]slurmtime.Limit, want slurmtime.Limit) []string {
	out := make([]string, 0, len(limits))
	for name, limit := range limits {
		if limit.Admits(want) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
