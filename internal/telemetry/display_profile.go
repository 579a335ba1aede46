package telemetry

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var displaySize = regexp.MustCompile(`(\d+)\s*x\s*(\d+)`)

type displayProfile struct {
	Displays []struct {
		Screens []struct {
			Pixels     string `json:"_spdisplays_pixels"`
			Resolution string `json:"_spdisplays_resolution"`
		} `json:"spdisplays_ndrvs"`
	} `json:"SPDisplaysDataType"`
}

// parseDisplayProfile extracts "WxH" for every screen in
// `system_profiler SPDisplaysDataType -json` output, joined with ", ".
// The native pixel size wins over the scaled resolution.
func parseDisplayProfile(data []byte) string {
	var profile displayProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return ""
	}
	var modes []string
	for _, gpu := range profile.Displays {
		for _, screen := range gpu.Screens {
			raw := screen.Pixels
			if raw == "" {
				raw = screen.Resolution
			}
			m := displaySize.FindStringSubmatch(raw)
			if m == nil {
				continue
			}
			modes = append(modes, fmt.Sprintf("%sx%s", m[1], m[2]))
		}
	}
	return strings.Join(modes, ", ")
}
