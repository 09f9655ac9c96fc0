package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		mode         MemMode
		expectedFree map[string]int
		expectedDiag Diagnostics
	}{
		{
			name:         "allocation-aware node with used slots",
			status:       "node01 idle 20/15/5/20 500000 100000 gpu:h100:4 gpu:h100:1\n",
			mode:         MemModeAllocated,
			expectedFree: map[string]int{"h100": 3},
		},
		{
			name:         "total-only mode ignores fifth column as allocation",
			status:       "node01 idle 20/15/5/20 40000 gpu:a100:8 gpu:a100:2\n",
			mode:         MemModeTotal,
			expectedFree: map[string]int{"a100": 6},
		},
		{
			name: "duplicate node names use first occurrence",
			status: "node01 idle 20/15/5/20 500000 0 gpu:h100:4 gpu:h100:1\n" +
				"node01 idle 20/15/5/20 500000 0 gpu:h100:8 gpu:h100:0\n",
			mode:         MemModeAllocated,
			expectedFree: map[string]int{"h100": 3},
		},
		{
			name: "free counts sum across nodes",
			status: "node01 idle 20/15/5/20 500000 0 gpu:h100:4 gpu:h100:1\n" +
				"node02 mixed 20/15/5/20 500000 0 gpu:h100:4 gpu:h100:2\n" +
				"node03 idle 20/15/5/20 500000 0 gpu:a100:8 gpu:a100:0\n",
			mode:         MemModeAllocated,
			expectedFree: map[string]int{"h100": 5, "a100": 8},
		},
		{
			name:         "drained node excluded despite free gpus",
			status:       "node01 drained 20/20/0/20 500000 0 gpu:h100:4 gpu:h100:0\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{Unhealthy: 1},
		},
		{
			name:         "unresponsive marker excluded",
			status:       "node01 drain* 20/20/0/20 500000 0 gpu:h100:4 gpu:h100:0\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{Unhealthy: 1},
		},
		{
			name:         "idle star excluded",
			status:       "node01 idle* 20/20/0/20 500000 0 gpu:h100:4 gpu:h100:0\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{Unhealthy: 1},
		},
		{
			name:         "compound state with bad marker excluded",
			status:       "node01 mixed+drain 20/15/5/20 500000 0 gpu:h100:4\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{Unhealthy: 1},
		},
		{
			name:         "uppercase state normalized before matching",
			status:       "node01 DOWN 20/15/5/20 500000 0 gpu:h100:4\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{Unhealthy: 1},
		},
		{
			name:         "too few idle cpus",
			status:       "node01 mixed 15/5/0/20 500000 0 gpu:h100:4 gpu:h100:0\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{LowCPU: 1},
		},
		{
			name:         "malformed cpu triplet",
			status:       "node01 idle 20/15/5 500000 0 gpu:h100:4 gpu:h100:0\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{LowCPU: 1},
		},
		{
			name:         "not enough available memory after allocation",
			status:       "node01 idle 20/15/5/20 500000 480000 gpu:h100:4 gpu:h100:0\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{LowMemory: 1},
		},
		{
			name:         "unparsable total memory",
			status:       "node01 idle 20/15/5/20 N/A 0 gpu:h100:4 gpu:h100:0\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{LowMemory: 1},
		},
		{
			name:         "missing allocation column treated as zero allocated",
			status:       "node01 idle 20/15/5/20 500000 gpu:h100:4\n",
			mode:         MemModeAllocated,
			expectedFree: map[string]int{"h100": 4},
		},
		{
			name:         "node without gpus",
			status:       "node01 idle 64/60/4/64 500000 0\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{NoGres: 1},
		},
		{
			name:         "fully used type never reported",
			status:       "node01 allocated 20/15/5/20 500000 0 gpu:h100:4 gpu:h100:4(IDX:0-3)\n",
			mode:         MemModeAllocated,
			expectedFree: map[string]int{},
		},
		{
			name:         "identical total and used columns read as no usage data",
			status:       "node01 idle 20/15/5/20 500000 0 gpu:h100:4 gpu:h100:4\n",
			mode:         MemModeAllocated,
			expectedFree: map[string]int{"h100": 4},
		},
		{
			name:         "used column sums duplicate type mentions",
			status:       "node01 idle 40/30/10/40 500000 0 gpu:h100:8 gpu:h100:2,gpu:h100:3\n",
			mode:         MemModeAllocated,
			expectedFree: map[string]int{"h100": 3},
		},
		{
			name:         "multiple types in one column",
			status:       "node01 idle 40/30/10/40 500000 0 gpu:a100:4,gpu:h100:2 gpu:a100:1\n",
			mode:         MemModeAllocated,
			expectedFree: map[string]int{"a100": 3, "h100": 2},
		},
		{
			name:         "mig profile names with long columns",
			status:       "gpunode-17 mixed 128/100/28/128 2000000 0 gpu:nvidia_a100_80gb_pcie_2g.20gb:8 gpu:nvidia_a100_80gb_pcie_2g.20gb:5\n",
			mode:         MemModeAllocated,
			expectedFree: map[string]int{"nvidia_a100_80gb_pcie_2g.20gb": 3},
		},
		{
			name:         "short line counted malformed",
			status:       "node01 idle 20/15/5/20\n",
			mode:         MemModeAllocated,
			expectedDiag: Diagnostics{Malformed: 1},
		},
		{
			name:   "blank lines ignored",
			status: "\n\n   \n",
			mode:   MemModeAllocated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, diag := Resolve(tt.status, tt.mode, DefaultThresholds)
			assert.Equal(t, tt.expectedDiag, diag)
			expected := tt.expectedFree
			if expected == nil {
				expected = map[string]int{}
			}
			assert.Equal(t, expected, report.FreeMap())
		})
	}
}

func TestReportRendering(t *testing.T) {
	report := NewReport(map[string]int{"v100": 2, "a100": 8, "h100": 3, "t4": 0, "bogus": -1})

	assert.Equal(t, []string{"a100", "h100", "v100"}, report.Types())
	assert.Equal(t, "a100 h100 v100", report.Presence())
	assert.Equal(t, "a100:8 h100:3 v100:2", report.Counts())
	assert.True(t, report.Has("a100"))
	assert.False(t, report.Has("t4"))
	assert.False(t, report.Has("bogus"))
	assert.Equal(t, 3, report.Free("h100"))
	assert.Equal(t, 0, report.Free("missing"))
}

func TestResolveFirstOccurrenceWinsEvenWhenIneligible(t *testing.T) {
	// The first record for a node is the one that counts, even if it was
	// rejected; the later duplicate never re-qualifies the node.
	status := "node01 down 20/15/5/20 500000 0 gpu:h100:4 gpu:h100:0\n" +
		"node01 idle 20/15/5/20 500000 0 gpu:h100:4 gpu:h100:0\n"
	report, diag := Resolve(status, MemModeAllocated, DefaultThresholds)
	assert.True(t, report.Empty())
	assert.Equal(t, Diagnostics{Unhealthy: 1}, diag)
}
