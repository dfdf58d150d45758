// Package molscreen ties the screening components together. The root
// package holds the TOML run description an operator writes once per
// campaign; everything environment-specific stays in env vars.
package molscreen

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/molscreen/molscreen/job"
	"github.com/molscreen/molscreen/prep"
)

type Config struct {
	Job     JobConfig     `toml:"job"`
	Docking DockingConfig `toml:"docking"`
}

type JobConfig struct {
	ID           string `toml:"id"`
	Library      string `toml:"library"`
	OutputRoot   string `toml:"output_root"`
	Workers      int    `toml:"workers"`
	Outputs      int    `toml:"outputs"`
	Slack        int    `toml:"slack"`
	DrainTimeout string `toml:"drain_timeout"`
}

type DockingConfig struct {
	Receptor       string    `toml:"receptor"`
	Center         []float64 `toml:"center"`
	BoxSize        []float64 `toml:"box_size"`
	Forcefield     string    `toml:"forcefield"`
	Docking        string    `toml:"docking"`
	Sidechains     []string  `toml:"sidechains"`
	Exhaustiveness int       `toml:"exhaustiveness"`
	Poses          int       `toml:"poses"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// JobConfig converts the TOML run description into the job's config.
func (c *Config) JobConfig() (job.Config, error) {
	var drain time.Duration
	if c.Job.DrainTimeout != "" {
		var err error
		if drain, err = time.ParseDuration(c.Job.DrainTimeout); err != nil {
			return job.Config{}, fmt.Errorf("error parsing drain_timeout: %w", err)
		}
	}

	return job.Config{
		ID:           c.Job.ID,
		Library:      c.Job.Library,
		OutputRoot:   c.Job.OutputRoot,
		Workers:      c.Job.Workers,
		Outputs:      c.Job.Outputs,
		Slack:        c.Job.Slack,
		DrainTimeout: drain,
	}, nil
}

// DockingConfig converts the TOML docking table into the preparation
// config.
func (c *Config) DockingConfig() (prep.Config, error) {
	center, err := triple("center", c.Docking.Center)
	if err != nil {
		return prep.Config{}, err
	}
	boxSize, err := triple("box_size", c.Docking.BoxSize)
	if err != nil {
		return prep.Config{}, err
	}

	return prep.Config{
		Receptor:       c.Docking.Receptor,
		Center:         center,
		BoxSize:        boxSize,
		Forcefield:     c.Docking.Forcefield,
		Docking:        c.Docking.Docking,
		Sidechains:     c.Docking.Sidechains,
		Exhaustiveness: c.Docking.Exhaustiveness,
		Poses:          c.Docking.Poses,
	}, nil
}

func triple(name string, values []float64) ([3]float64, error) {
	if len(values) != 3 {
		return [3]float64{}, fmt.Errorf("%s must have exactly 3 components, got %d", name, len(values))
	}

	return [3]float64{values[0], values[1], values[2]}, nil
}
