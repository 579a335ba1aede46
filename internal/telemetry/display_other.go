//go:build !linux && !darwin

package telemetry

import "context"

func readResolution(_ context.Context) string {
	return ""
}
