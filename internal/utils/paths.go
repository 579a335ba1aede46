// Package utils contains logging, filesystem path and NAT helpers shared
// across holodash.
package utils

import (
	"os"
	"path/filepath"
)

// ProbeToolName is the file name of the hardware probe executable.
const ProbeToolName = "temp_sensor"

// Paths resolves filesystem locations relative to the running executable.
type Paths struct {
	RootPath string `json:"root_path"`
}

// NewPaths constructs Paths rooted at the specified directory.
func NewPaths(rootPath string) *Paths {
	return &Paths{RootPath: rootPath}
}

// ExecutablePaths roots Paths at the directory containing the running binary,
// falling back to the working directory.
func ExecutablePaths() *Paths {
	exe, err := os.Executable()
	if err == nil {
		if resolved, rerr := filepath.EvalSymlinks(exe); rerr == nil && resolved != "" {
			exe = resolved
		}
		return NewPaths(filepath.Dir(exe))
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return NewPaths(cwd)
}

// LogsDir returns the logs directory next to the binary.
func (p *Paths) LogsDir() string {
	return filepath.Join(p.RootPath, "logs")
}

// LogFile returns the default log file path.
func (p *Paths) LogFile() string {
	return filepath.Join(p.LogsDir(), "holodash.log")
}

// ProbeCandidates lists where the probe executable may live, in search
// order: working-directory relative, binary-directory relative (development
// layout), package relative, and alongside the binary. Extra paths from the
// configuration are searched last.
func (p *Paths) ProbeCandidates(extra ...string) []string {
	candidates := []string{
		filepath.Join("temp-sensor", ProbeToolName),
		filepath.Join("..", "temp-sensor", ProbeToolName),
		filepath.Join("server", "temp-sensor", ProbeToolName),
		filepath.Join(p.RootPath, ProbeToolName),
	}
	for _, path := range extra {
		if path != "" {
			candidates = append(candidates, path)
		}
	}
	return candidates
}
