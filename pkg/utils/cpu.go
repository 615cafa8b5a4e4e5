package utils

import (
	"context"

	"github.com/shirou/gopsutil/cpu"
)

// CPUBelow reports whether system-wide CPU usage is at or under maxUsage
// percent. A zero or negative limit disables the check.
func CPUBelow(ctx context.Context, maxUsage float64) (bool, float64, error) {
	if maxUsage <= 0 {
		return true, 0, nil
	}
	usage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return false, 0, err
	}
	if len(usage) == 0 {
		return true, 0, nil
	}
	return usage[0] <= maxUsage, usage[0], nil
}
