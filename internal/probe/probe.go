// Package probe wraps the external hardware probe executable (temp_sensor)
// that reports SoC temperature, fan speeds, a power score and battery state,
// and that can switch the fan mode when run with root privileges.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"holodash/internal/models"
)

const (
	// ToolName is the file name of the probe executable.
	ToolName = "temp_sensor"

	queryFlag   = "-j"
	setModeFlag = "-s"

	// DefaultQueryTimeout bounds a single query subprocess.
	DefaultQueryTimeout = 2 * time.Second
	// DefaultFanTimeout bounds a fan-mode change, which may wait on sudo.
	DefaultFanTimeout = 10 * time.Second
)

var (
	// ErrToolNotFound is returned when none of the candidate paths exists.
	ErrToolNotFound = errors.New(ToolName + " not found")
	// ErrMalformed is returned when the probe output is not a valid reading.
	ErrMalformed = errors.New("malformed probe output")
)

// Probe queries the hardware probe for a fresh reading.
type Probe interface {
	Query(ctx context.Context) (*models.RawReading, error)
}

// FanController changes the fan mode and returns the tool's stdout.
type FanController interface {
	SetFanMode(ctx context.Context, mode string) (string, error)
}

// Tool is the subprocess adapter for a located probe executable.
type Tool struct {
	Path    string
	Runner  Runner
	Timeout time.Duration
}

// NewTool returns a Tool for the executable at path.
func NewTool(path string, runner Runner) *Tool {
	if runner == nil {
		runner = NewOSRunner()
	}
	return &Tool{Path: path, Runner: runner, Timeout: DefaultQueryTimeout}
}

// Query runs the probe in JSON mode and parses its output.
func (t *Tool) Query(ctx context.Context) (*models.RawReading, error) {
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}
	res, err := t.Runner.Run(ctx, t.Path, queryFlag)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.Path, err)
	}
	return ParseReading(res.Stdout)
}

// rawDocument mirrors RawReading with pointers so missing required keys can
// be told apart from zero values.
type rawDocument struct {
	CPUTemp             *float32  `json:"cpu_temp"`
	FanSpeed            []float32 `json:"fan_speed"`
	EstimatedPowerScore *float32  `json:"estimated_power_score"`
	BatteryPercentage   *uint8    `json:"battery_percentage"`
	BatteryStatus       *string   `json:"battery_status"`
}

// ParseReading decodes the probe's JSON output. cpu_temp, fan_speed and
// estimated_power_score are required; battery fields are optional.
func ParseReading(data []byte) (*models.RawReading, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.CPUTemp == nil || doc.FanSpeed == nil || doc.EstimatedPowerScore == nil {
		return nil, fmt.Errorf("%w: missing required field", ErrMalformed)
	}
	reading := &models.RawReading{
		CPUTemp:             *doc.CPUTemp,
		FanSpeed:            doc.FanSpeed,
		EstimatedPowerScore: *doc.EstimatedPowerScore,
		BatteryPercentage:   doc.BatteryPercentage,
	}
	if doc.BatteryStatus != nil && strings.TrimSpace(*doc.BatteryStatus) != "" {
		status := strings.TrimSpace(*doc.BatteryStatus)
		reading.BatteryStatus = &status
	}
	return reading, nil
}
