package sensor

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/sensor-replay/internal/fsutil"
	"github.com/banshee-data/sensor-replay/internal/monitoring"
)

// ImageExt is appended to each index line to form the image filename.
const ImageExt = ".png"

// LoadFrameIndexFile opens the timestamp index at indexPath through fsys and
// parses it with LoadFrames.
func LoadFrameIndexFile(fsys fsutil.FileSystem, imageDir, indexPath string) (*FrameIndex, error) {
	f, err := fsys.Open(indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image index %s: %w", indexPath, err)
	}
	defer f.Close()

	idx, err := LoadFrames(f, imageDir)
	if err != nil {
		return nil, fmt.Errorf("image index %s: %w", indexPath, err)
	}
	return idx, nil
}

// LoadFrames parses an image timestamp index: one nanosecond timestamp per
// non-empty line. The image path is imageDir + "/" + the line text + ".png",
// using the literal text so zero padding in the index survives into the
// filename. Lines whose token does not parse as a number are skipped.
//
// Returns ErrNoFrames when the index is empty.
func LoadFrames(r io.Reader, imageDir string) (*FrameIndex, error) {
	idx := &FrameIndex{
		Paths:      make([]string, 0, 5000),
		Timestamps: make([]float64, 0, 5000),
	}

	scanner := bufio.NewScanner(r)
	skipped := 0
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		ns, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			skipped++
			continue
		}
		idx.Paths = append(idx.Paths, imageDir+"/"+line+ImageExt)
		idx.Timestamps = append(idx.Timestamps, ns/1e9)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read image index: %w", err)
	}

	if skipped > 0 {
		monitoring.Logf("[sensor] skipped %d unparsable image index lines", skipped)
	}
	if idx.Len() == 0 {
		return nil, ErrNoFrames
	}
	return idx, nil
}
