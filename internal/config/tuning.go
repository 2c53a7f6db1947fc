package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tuning holds algorithm knobs that are recalibrated against outcome data
// rather than per deployment. Zero values mean "use the built-in default".
type Tuning struct {
	Hierarchy HierarchyTuning `yaml:"hierarchy"`
	Cluster   ClusterTuning   `yaml:"cluster"`
}

type HierarchyTuning struct {
	SubjectWeight float64 `yaml:"subject_weight"`
	ActionWeight  float64 `yaml:"action_weight"`
	ObjectWeight  float64 `yaml:"object_weight"`
	ObjectCredit  float64 `yaml:"object_credit"`
	MinScore      float64 `yaml:"min_score"`
	TopN          int     `yaml:"top_n"`
}

type ClusterTuning struct {
	Strategy          string  `yaml:"strategy"`
	MinSharedKeywords int     `yaml:"min_shared_keywords"`
	Threshold         float64 `yaml:"threshold"`
	ThresholdFraction float64 `yaml:"threshold_fraction"`
}

// LoadTuning reads a YAML tuning file. An empty path yields zero Tuning.
func LoadTuning(path string) (Tuning, error) {
	if strings.TrimSpace(path) == "" {
		return Tuning{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file %s: %w", path, err)
	}
	return ParseTuning(raw)
}

func ParseTuning(raw []byte) (Tuning, error) {
	var t Tuning
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Tuning{}, fmt.Errorf("parse tuning YAML: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	h := t.Hierarchy
	if h.SubjectWeight < 0 || h.ActionWeight < 0 || h.ObjectWeight < 0 {
		return fmt.Errorf("hierarchy weights must be >= 0")
	}
	if h.ObjectCredit < 0 || h.ObjectCredit > 1 {
		return fmt.Errorf("hierarchy.object_credit must be within [0,1]")
	}
	if h.MinScore < 0 || h.MinScore > 1 {
		return fmt.Errorf("hierarchy.min_score must be within [0,1]")
	}
	if h.TopN < 0 {
		return fmt.Errorf("hierarchy.top_n must be >= 0")
	}
	c := t.Cluster
	if c.MinSharedKeywords < 0 {
		return fmt.Errorf("cluster.min_shared_keywords must be >= 0")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("cluster.threshold must be within [0,1]")
	}
	if c.ThresholdFraction < 0 {
		return fmt.Errorf("cluster.threshold_fraction must be >= 0")
	}
	return nil
}
