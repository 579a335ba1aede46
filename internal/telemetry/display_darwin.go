//go:build darwin

package telemetry

import (
	"context"
	"time"

	"holodash/internal/probe"
)

const displayProfileTimeout = 5 * time.Second

func readResolution(ctx context.Context) string {
	return readDisplayProfile(ctx, probe.NewOSRunner())
}

func readDisplayProfile(ctx context.Context, runner probe.Runner) string {
	ctx, cancel := context.WithTimeout(ctx, displayProfileTimeout)
	defer cancel()
	res, err := runner.Run(ctx, "system_profiler", "SPDisplaysDataType", "-json")
	if err != nil {
		return ""
	}
	return parseDisplayProfile(res.Stdout)
}
