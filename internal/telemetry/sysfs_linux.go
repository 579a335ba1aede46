//go:build linux

package telemetry

import (
	"os"
	"strings"
)

// hostSys is the sysfs mount, overridable with HOST_SYS for containers.
func hostSys() string {
	if root := os.Getenv("HOST_SYS"); root != "" {
		return root
	}
	return "/sys"
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
