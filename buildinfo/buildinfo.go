package buildinfo

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"
)

// Service is the name reported by health checks and the version command.
const Service = "activity-tracker"

// Build information variables set via ldflags during compilation
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var startTime atomic.Int64

func init() {
	startTime.Store(time.Now().UnixNano())
}

// Info contains build and runtime information
type Info struct {
	Service   string        `json:"service" example:"activity-tracker"`
	Version   string        `json:"version" example:"v1.0.0"`
	Commit    string        `json:"commit" example:"abc123def456"`
	BuildDate string        `json:"buildDate" example:"2026-01-10T10:00:00Z"`
	GoVersion string        `json:"goVersion" example:"go1.25.4"`
	Hostname  string        `json:"hostname" example:"activity-01"`
	Uptime    time.Duration `json:"uptime" swaggertype:"integer" example:"3600000000000"`
}

// GetInfo returns complete build and runtime information
func GetInfo() Info {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return Info{
		Service:   Service,
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Hostname:  hostname,
		Uptime:    time.Since(time.Unix(0, startTime.Load())),
	}
}

// String renders the one-line banner printed by `activity version` and at startup.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", i.Service, i.Version, i.Commit, i.BuildDate, i.GoVersion)
}

// SetStartTime resets the uptime origin; serve calls it once listeners are ready.
func SetStartTime(t time.Time) {
	startTime.Store(t.UnixNano())
}
