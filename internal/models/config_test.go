package models

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestTarget_Name(t *testing.T) {
	assert.Equal(t, "docs", Target{Tag: "docs", SourcePath: "/data"}.Name())
	assert.Equal(t, "/data", Target{SourcePath: "/data"}.Name())
}

func TestTarget_SourceName(t *testing.T) {
	assert.Equal(t, "data", Target{SourcePath: "/srv/data/"}.SourceName())
	assert.Equal(t, "notes.txt", Target{SourcePath: "/home/u/notes.txt"}.SourceName())
}

func TestTarget_Versioned(t *testing.T) {
	assert.False(t, Target{KeepNum: 1}.Versioned())
	assert.True(t, Target{KeepNum: 3}.Versioned())
}

func TestTarget_Workers(t *testing.T) {
	tests := []struct {
		name   string
		global GlobalSettings
		target Target
		want   int
	}{
		{
			name:   "single threaded globally",
			global: GlobalSettings{MultiThreaded: false, ThreadCount: 8},
			want:   1,
		},
		{
			name:   "global thread count",
			global: GlobalSettings{MultiThreaded: true, ThreadCount: 8},
			want:   8,
		},
		{
			name:   "host parallelism when unset",
			global: GlobalSettings{MultiThreaded: true},
			want:   runtime.NumCPU(),
		},
		{
			name:   "target thread count wins",
			global: GlobalSettings{MultiThreaded: true, ThreadCount: 8},
			target: Target{ThreadCount: intPtr(3)},
			want:   3,
		},
		{
			name:   "target disables multi threading",
			global: GlobalSettings{MultiThreaded: true, ThreadCount: 8},
			target: Target{MultiThreaded: boolPtr(false), ThreadCount: intPtr(3)},
			want:   1,
		},
		{
			name:   "target enables multi threading",
			global: GlobalSettings{MultiThreaded: false, ThreadCount: 4},
			target: Target{MultiThreaded: boolPtr(true)},
			want:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.Workers(tt.global))
		})
	}
}
