package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// TargetSpec is one badge target: which year's leaderboard feeds which file.
// Pattern is optional; the stars-badge default applies when empty.
type TargetSpec struct {
	Year    int    `yaml:"year"`
	File    string `yaml:"file"`
	Pattern string `yaml:"pattern,omitempty"`
}

type targetsFile struct {
	Targets []TargetSpec `yaml:"targets"`
}

// LoadTargets reads a YAML targets file:
//
//	targets:
//	  - year: 2022
//	    file: README.md
//	  - year: 2023
//	    file: README.md
//	    pattern: 'stars%202023⭐-(?P<count>[0-9]+)-yellow'
func LoadTargets(path string) ([]TargetSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}

	var tf targetsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse targets file %s: %w", path, err)
	}
	if len(tf.Targets) == 0 {
		return nil, fmt.Errorf("targets file %s lists no targets", path)
	}

	for i, t := range tf.Targets {
		if t.Year <= 0 {
			return nil, fmt.Errorf("targets file %s: entry %d has no year", path, i+1)
		}
		if t.File == "" {
			return nil, fmt.Errorf("targets file %s: entry %d has no file", path, i+1)
		}
	}

	return tf.Targets, nil
}

// Targets resolves the patch targets for a run: the targets file when one is
// configured, otherwise the single target built from YEAR and TARGET_FILE.
func (c *Config) Targets() ([]TargetSpec, error) {
	if c.TargetsFile != "" {
		return LoadTargets(c.TargetsFile)
	}
	return []TargetSpec{{Year: c.Year, File: c.TargetFile, Pattern: c.BadgePattern}}, nil
}
