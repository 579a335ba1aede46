package telemetry

import "testing"

const sampleDisplayProfile = `{
  "SPDisplaysDataType" : [
    {
      "_name" : "Apple M2",
      "spdisplays_ndrvs" : [
        {
          "_name" : "Color LCD",
          "_spdisplays_pixels" : "2560 x 1664",
          "_spdisplays_resolution" : "1470 x 956 @ 60.00Hz"
        },
        {
          "_name" : "DELL U2720Q",
          "_spdisplays_resolution" : "3840 x 2160 @ 60.00Hz"
        }
      ]
    }
  ]
}`

func TestParseDisplayProfile(t *testing.T) {
	got := parseDisplayProfile([]byte(sampleDisplayProfile))
	if got != "2560x1664, 3840x2160" {
		t.Fatalf("expected native pixels then scaled fallback, got %q", got)
	}
}

func TestParseDisplayProfileHeadless(t *testing.T) {
	for _, data := range []string{`{"SPDisplaysDataType":[{"_name":"Apple M1"}]}`, `not json`, ``} {
		if got := parseDisplayProfile([]byte(data)); got != "" {
			t.Fatalf("expected empty resolution for %q, got %q", data, got)
		}
	}
}
