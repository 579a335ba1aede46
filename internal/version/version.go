// Package version carries build metadata set with -ldflags, e.g.
//
//	go build -ldflags "-X holodash/internal/version.Version=v0.3.0 -X holodash/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

var (
	// Version is the release tag; empty for dev builds.
	Version = ""
	// Commit is the short git SHA.
	Commit = ""
	// Date is the UTC build time (RFC3339).
	Date = ""
	// Dirty is "dirty" when built from a modified tree.
	Dirty = ""
)

// Info is the JSON shape served at /version.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Dirty   bool   `json:"dirty"`
	Display string `json:"display"`
}

// Current returns the metadata of the running binary.
func Current() Info {
	return Info{
		Version: Version,
		Commit:  Commit,
		Date:    Date,
		Dirty:   Dirty == "dirty",
		Display: String(),
	}
}

// String returns Version for releases, "dev-<sha>" (with a trailing "*" when
// dirty) for untagged builds, and "dev" when nothing was injected.
func String() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		suffix := Commit
		if Dirty == "dirty" {
			suffix += "*"
		}
		return "dev-" + suffix
	}
	return "dev"
}
