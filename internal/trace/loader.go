// Package trace loads vehicle mobility traces from plain text waypoint
// files. One file is one vehicle; files are bound to vehicle ids in file
// name order so repeated runs over the same directory agree on who is who.
package trace

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
)

// Loader discovers and parses waypoint files under a single directory.
type Loader struct {
	dir    string
	logger log.Logger
}

func NewLoader(dir string, logger log.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// Load returns one trace per eligible file, in file name order. A file that
// yields no usable waypoints still produces a trace; the caller decides
// what an immobile vehicle means. Only a missing directory or a directory
// with no eligible files is fatal.
func (l *Loader) Load() ([]core.VehicleTrace, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrTraceDirMissing, l.dir)
		}
		return nil, fmt.Errorf("stat trace directory %s: %w", l.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", core.ErrTraceDirMissing, l.dir)
	}

	// os.ReadDir sorts entries by name, which fixes the id assignment order.
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read trace directory %s: %w", l.dir, err)
	}

	var traces []core.VehicleTrace
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		id := len(traces)
		waypoints := l.parseFile(filepath.Join(l.dir, entry.Name()))
		if len(waypoints) == 0 {
			l.logger.WithField("file", entry.Name()).
				Warn("trace file has no usable waypoints, vehicle will stay at origin")
		}
		l.logger.WithFields(map[string]interface{}{
			"file":      entry.Name(),
			"vehicle":   id,
			"waypoints": len(waypoints),
		}).Debug("loaded trace")
		traces = append(traces, core.VehicleTrace{VehicleID: id, Waypoints: waypoints})
	}

	if len(traces) == 0 {
		return nil, fmt.Errorf("%w: no .txt files under %s", core.ErrNoTraceSources, l.dir)
	}
	l.logger.WithField("vehicles", len(traces)).Info("trace directory loaded")
	return traces, nil
}

// parseFile reads one waypoint file. Lines are "time x y"; blank lines and
// '#' comments are skipped, and a line that does not parse is dropped with
// a warning rather than poisoning the rest of the file.
func (l *Loader) parseFile(path string) []core.Waypoint {
	f, err := os.Open(path)
	if err != nil {
		l.logger.WithError(err).WithField("file", path).Warn("cannot open trace file")
		return nil
	}
	defer f.Close()

	var waypoints []core.Waypoint
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		wp, err := parseWaypoint(line)
		if err != nil {
			l.logger.WithFields(map[string]interface{}{
				"file": path,
				"line": lineNo,
			}).Warnf("skipping waypoint: %v", err)
			continue
		}
		waypoints = append(waypoints, wp)
	}
	if err := scanner.Err(); err != nil {
		l.logger.WithError(err).WithField("file", path).Warn("trace file truncated by read error")
	}
	return waypoints
}

func parseWaypoint(line string) (core.Waypoint, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return core.Waypoint{}, fmt.Errorf("want 3 fields, got %d", len(fields))
	}
	vals := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return core.Waypoint{}, fmt.Errorf("field %d %q is not a number", i+1, fields[i])
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.Waypoint{}, fmt.Errorf("field %d %q is not finite", i+1, fields[i])
		}
		vals[i] = v
	}
	if vals[0] < 0 {
		return core.Waypoint{}, fmt.Errorf("negative time %v", vals[0])
	}
	return core.Waypoint{Time: vals[0], X: vals[1], Y: vals[2]}, nil
}
