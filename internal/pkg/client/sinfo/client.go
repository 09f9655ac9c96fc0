package sinfo

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/ktolnos/slurm-utils/internal/availability"
)

type ExecCommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// Wide GRES columns: multi-instance-GPU profile names overflow the default
// width and sinfo would truncate them.
const (
	nodeFormatAlloc = "NodeHost:30,StateLong:30,CPUsState:30,Memory:30,AllocMem:30,Gres:60,GresUsed:60"
	nodeFormatTotal = "NodeHost:30,StateLong:30,CPUsState:30,Memory:30,Gres:60,GresUsed:60"
	partitionFormat = "PartitionName:30,Time:30"
)

// Client shells out to sinfo. The command constructor is injectable so tests
// can substitute canned output.
type Client struct {
	execCommand ExecCommandFunc
	logger      *slog.Logger
}

func New(execCommand ExecCommandFunc, logger *slog.Logger) *Client {
	if execCommand == nil {
		execCommand = exec.CommandContext
	}
	return &Client{
		execCommand: execCommand,
		logger:      logger,
	}
}

// NodeStatus queries per-node state, trying the allocation-aware column set
// first and falling back once to the total-memory-only set. The returned mode
// tells the resolver which memory columns the text carries.
func (c *Client) NodeStatus(ctx context.Context, partitions []string) (string, availability.MemMode, error) {
	args := []string{"-h", "-N", "-O"}
	if len(partitions) > 0 {
		args = append(args, nodeFormatAlloc, "-p", strings.Join(partitions, ","))
	} else {
		args = append(args, nodeFormatAlloc)
	}
	out, err := c.run(ctx, args...)
	if err == nil {
		return out, availability.MemModeAllocated, nil
	}
	c.logger.Warn("allocation-aware node query failed, retrying with total memory only", "err", err)

	args[3] = nodeFormatTotal
	out, err = c.run(ctx, args...)
	if err != nil {
		return "", 0, fmt.Errorf("node status query failed in both scan modes: %w", err)
	}
	return out, availability.MemModeTotal, nil
}

// PartitionLimits queries the partition / max-walltime listing.
func (c *Client) PartitionLimits(ctx context.Context) (string, error) {
	return c.run(ctx, "-h", "-O", partitionFormat)
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	cmd := c.execCommand(ctx, "sinfo", args...)
	output, err := cmd.CombinedOutput()
	c.logger.Debug(cmd.String())
	if err != nil {
		c.logger.Error("unable to execute command", "cmd", cmd.String(), "output", string(output), "err", err)
		return "", fmt.Errorf("%s: %w", cmd.String(), err)
	}
	return string(output), nil
}
