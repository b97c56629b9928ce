package sensor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/banshee-data/sensor-replay/internal/fsutil"
	"github.com/banshee-data/sensor-replay/internal/monitoring"
)

// inertialFields is the number of leading numeric fields read from each line:
// time, wx, wy, wz, ax, ay, az. Anything after is ignored.
const inertialFields = 7

const nanosToSeconds = 1e-9

// LoadInertialFile opens path through fsys and parses it with LoadInertial.
func LoadInertialFile(fsys fsutil.FileSystem, path string) ([]InertialSample, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open inertial log %s: %w", path, err)
	}
	defer f.Close()

	samples, err := LoadInertial(f)
	if err != nil {
		return nil, fmt.Errorf("inertial log %s: %w", path, err)
	}
	return samples, nil
}

// LoadInertial parses an inertial log, one sample per line. Lines that do not
// start with a digit are treated as comments and skipped, as are lines whose
// time field does not parse. Fields may be separated by commas, whitespace or
// both. The first field is a nanosecond timestamp and is converted to seconds.
//
// Returns ErrNoInertialSamples when nothing could be parsed.
func LoadInertial(r io.Reader) ([]InertialSample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	samples := make([]InertialSample, 0, 30000)
	skipped := 0
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if c := line[0]; c < '0' || c > '9' {
			continue
		}
		s, ok := parseInertialLine(line)
		if !ok {
			skipped++
			continue
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inertial log: %w", err)
	}

	if skipped > 0 {
		monitoring.Logf("[sensor] skipped %d malformed inertial lines", skipped)
	}
	if len(samples) == 0 {
		return nil, ErrNoInertialSamples
	}
	return samples, nil
}

// parseInertialLine reads up to inertialFields numbers. Parsing stops at the
// first token that is not a number; fields not reached stay zero. The line is
// rejected only when the time field itself is missing.
func parseInertialLine(line string) (InertialSample, bool) {
	tokens := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	var data [inertialFields]float64
	n := 0
	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			break
		}
		data[n] = v
		n++
		if n == inertialFields {
			break
		}
	}
	if n == 0 {
		return InertialSample{}, false
	}

	return InertialSample{
		Timestamp:          data[0] * nanosToSeconds,
		AngularVelocity:    Vec3{X: data[1], Y: data[2], Z: data[3]},
		LinearAcceleration: Vec3{X: data[4], Y: data[5], Z: data[6]},
	}, true
}
