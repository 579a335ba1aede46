package probe

import (
	"context"
	"os"
	"path/filepath"
)

// fileExists reports whether path names an existing file or directory.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Discover finds a working probe at startup. A candidate is accepted only if
// a query succeeds and parses. As a last resort <cwd>/temp-sensor/temp_sensor
// is accepted on existence alone. Returns nil when no probe is usable.
func Discover(ctx context.Context, candidates []string, runner Runner) *Tool {
	if runner == nil {
		runner = NewOSRunner()
	}
	for _, path := range candidates {
		if path == "" || !fileExists(path) {
			continue
		}
		tool := NewTool(path, runner)
		if _, err := tool.Query(ctx); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			tool.Path = abs
		}
		return tool
	}
	if cwd, err := os.Getwd(); err == nil {
		fallback := filepath.Join(cwd, "temp-sensor", ToolName)
		if fileExists(fallback) {
			return NewTool(fallback, runner)
		}
	}
	return nil
}
