package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-01T10:20:30Z", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2025-03-01T10:20:30", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"2025-03-01 10:20:30", time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC)},
		{"unknown", time.Time{}},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseTime(tt.in)))
		})
	}
}

func TestBuildInfo(t *testing.T) {
	release := BuildInfo{
		Version:   "v1.2.0",
		GitCommit: "0123456789abcdef",
		BuildTime: time.Date(2025, 3, 1, 10, 20, 30, 0, time.UTC),
		GoVersion: "go1.24.4",
		Platform:  "linux/amd64",
		Dirty:     true,
	}
	assert.True(t, release.IsRelease())
	assert.Equal(t, "v1.2.0 (0123456)", release.Short())
	assert.Equal(t, "Version: v1.2.0\n"+
		"Commit: 0123456789abcdef (dirty)\n"+
		"Built: 2025-03-01T10:20:30Z\n"+
		"Go: go1.24.4\n"+
		"Platform: linux/amd64", release.String())

	dev := BuildInfo{Version: "dev-0123456", GitCommit: "0123456789abcdef"}
	assert.False(t, dev.IsRelease())
	assert.Equal(t, "dev-0123456", dev.Short())
}

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
