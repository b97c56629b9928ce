package engine

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Matrix is an OpenCV "!!opencv-matrix" node, row-major.
type Matrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	DT   string    `yaml:"dt"`
	Data []float64 `yaml:"data"`
}

// Settings is a flattened engine settings file: scalar entries by key
// ("Camera.fx", "IMU.NoiseGyro", ...) and matrix entries by key.
type Settings struct {
	Values   map[string]string
	Matrices map[string]Matrix
}

// ParseSettings reads an OpenCV FileStorage YAML document. The non-standard
// "%YAML:1.0" directive OpenCV writes is accepted.
func ParseSettings(data []byte) (*Settings, error) {
	data = stripOpenCVDirective(data)

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	s := &Settings{
		Values:   make(map[string]string),
		Matrices: make(map[string]Matrix),
	}
	if len(root.Content) == 0 {
		return s, nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse settings: top level is not a mapping")
	}

	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i].Value, top.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			s.Values[key] = val.Value
		case yaml.MappingNode:
			val.Tag = "!!map"
			var m Matrix
			if err := val.Decode(&m); err != nil {
				return nil, fmt.Errorf("parse settings: %s: %w", key, err)
			}
			if m.Rows*m.Cols != len(m.Data) {
				return nil, fmt.Errorf("parse settings: %s: %dx%d matrix has %d values", key, m.Rows, m.Cols, len(m.Data))
			}
			s.Matrices[key] = m
		}
	}
	return s, nil
}

// Float returns the numeric value stored under key.
func (s *Settings) Float(key string) (float64, bool) {
	v, ok := s.Values[key]
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func stripOpenCVDirective(data []byte) []byte {
	if !bytes.HasPrefix(data, []byte("%YAML:")) {
		return data
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[i+1:]
	}
	return nil
}
