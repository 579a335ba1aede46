//go:build linux

package telemetry

import (
	"context"
	"path/filepath"
	"strings"
)

func readResolution(_ context.Context) string {
	return readDRMResolution(filepath.Join(hostSys(), "class", "drm", "card*-*"))
}

// readDRMResolution returns the preferred mode of every connected DRM
// connector, joined with ", ".
func readDRMResolution(pattern string) string {
	connectors, _ := filepath.Glob(pattern)
	var modes []string
	for _, dir := range connectors {
		status, err := readTrimmed(filepath.Join(dir, "status"))
		if err != nil || status != "connected" {
			continue
		}
		raw, err := readTrimmed(filepath.Join(dir, "modes"))
		if err != nil || raw == "" {
			continue
		}
		modes = append(modes, strings.SplitN(raw, "\n", 2)[0])
	}
	return strings.Join(modes, ", ")
}
