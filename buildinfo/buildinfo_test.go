package buildinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetInfo(t *testing.T) {
	SetStartTime(time.Now().Add(-time.Minute))
	info := GetInfo()

	assert.Equal(t, Service, info.Service)
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.GreaterOrEqual(t, info.Uptime, time.Minute)
	assert.Contains(t, info.String(), "activity-tracker dev")
}
