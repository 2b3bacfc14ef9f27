package trace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
)

func writeTrace(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadMissingDir(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope"), log.Nop())
	_, err := l.Load()
	assert.ErrorIs(t, err, core.ErrTraceDirMissing)
}

func TestLoadDirWithoutTraceFiles(t *testing.T) {
	dir := t.TempDir()
	writeTrace(t, dir, "readme.md", "not a trace")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	l := NewLoader(dir, log.Nop())
	_, err := l.Load()
	assert.ErrorIs(t, err, core.ErrNoTraceSources)
}

func TestLoadAssignsIDsInNameOrder(t *testing.T) {
	dir := t.TempDir()
	writeTrace(t, dir, "bravo.txt", "0.0 20 0\n")
	writeTrace(t, dir, "alpha.txt", "0.0 10 0\n")
	writeTrace(t, dir, "charlie.txt", "0.0 30 0\n")

	l := NewLoader(dir, log.Nop())
	traces, err := l.Load()
	require.NoError(t, err)
	require.Len(t, traces, 3)

	for i, wantX := range []float64{10, 20, 30} {
		assert.Equal(t, i, traces[i].VehicleID)
		require.Len(t, traces[i].Waypoints, 1)
		assert.Equal(t, wantX, traces[i].Waypoints[0].X)
	}
}

func TestLoadSkipsCommentsBlanksAndBadLines(t *testing.T) {
	dir := t.TempDir()
	writeTrace(t, dir, "v0.txt", "0.0 0 0\n5.0 100 0\n# parked here\nbad\n10.0 200 0\n")

	l := NewLoader(dir, log.Nop())
	traces, err := l.Load()
	require.NoError(t, err)
	require.Len(t, traces, 1)

	want := []core.Waypoint{
		{Time: 0, X: 0, Y: 0},
		{Time: 5, X: 100, Y: 0},
		{Time: 10, X: 200, Y: 0},
	}
	assert.Equal(t, want, traces[0].Waypoints)
}

func TestLoadEmptyTraceStillYieldsVehicle(t *testing.T) {
	dir := t.TempDir()
	writeTrace(t, dir, "ghost.txt", "# nothing but comments\n\n")
	writeTrace(t, dir, "mover.txt", "0 1 2\n")

	l := NewLoader(dir, log.Nop())
	traces, err := l.Load()
	require.NoError(t, err)
	require.Len(t, traces, 2)

	assert.True(t, traces[0].Empty())
	assert.False(t, traces[1].Empty())
}

func TestParseWaypoint(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    core.Waypoint
		wantErr bool
	}{
		{name: "plain", line: "1.5 10 -20", want: core.Waypoint{Time: 1.5, X: 10, Y: -20}},
		{name: "extra fields ignored", line: "2 3 4 trailing junk", want: core.Waypoint{Time: 2, X: 3, Y: 4}},
		{name: "tabs", line: "0\t0\t0", want: core.Waypoint{}},
		{name: "too few fields", line: "1.0 2.0", wantErr: true},
		{name: "not a number", line: "1.0 2.0 oops", wantErr: true},
		{name: "negative time", line: "-0.5 0 0", wantErr: true},
		{name: "nan coordinate", line: "1 NaN 0", wantErr: true},
		{name: "infinite time", line: "Inf 0 0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWaypoint(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
