package availability

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ktolnos/slurm-utils/internal/pkg/common/slurmtime"
)

// Source supplies raw scheduler status text. The production implementation
// shells out to sinfo; tests substitute canned text.
type Source interface {
	// NodeStatus returns one line per node, restricted to the given
	// partitions when non-empty, together with the memory mode the underlying
	// query produced.
	NodeStatus(ctx context.Context, partitions []string) (string, MemMode, error)
	// PartitionLimits returns the partition / max-walltime listing.
	PartitionLimits(ctx context.Context) (string, error)
}

// ScanResult is one full resolution pass: the report, the per-stage skip
// counts, and the memory mode the status query ended up in.
type ScanResult struct {
	Report Report
	Diag   Diagnostics
	Mode   MemMode
}

// Scan acquires status text from src and resolves it into a report. A non-nil
// maxDuration first narrows the scan to partitions whose time limit admits it;
// a failing or unreadable partition listing downgrades to an unfiltered scan
// with a warning, while a listing with zero qualifying partitions yields an
// empty report and no error.
func Scan(ctx context.Context, src Source, maxDuration *slurmtime.Limit, th Thresholds, logger *slog.Logger) (ScanResult, error) {
	var partitions []string
	if maxDuration != nil {
		text, err := src.PartitionLimits(ctx)
		var limits map[string]slurmtime.Limit
		if err == nil {
			limits = ParsePartitionLimits(text)
		}
		if err != nil || len(limits) == 0 {
			logger.Warn("partition listing unavailable, scanning all partitions", "err", err)
		} else {
			partitions = EligiblePartitions(limits, *maxDuration)
			if len(partitions) == 0 {
				logger.Info("no partition admits the requested duration", "max_duration", maxDuration.String())
				return ScanResult{Report: NewReport(nil)}, nil
			}
		}
	}

	status, mode, err := src.NodeStatus(ctx, partitions)
	if err != nil {
		return ScanResult{}, fmt.Errorf("unable to acquire node status: %w", err)
	}

	report, diag := Resolve(status, mode, th)
	if report.Empty() && diag.EligibilitySkips() > 0 {
		logger.Warn("no free gpus found, nodes were filtered out",
			"unhealthy", diag.Unhealthy,
			"low_cpu", diag.LowCPU,
			"low_memory", diag.LowMemory,
		)
	}
	return ScanResult{Report: report, Diag: diag, Mode: mode}, nil
}
