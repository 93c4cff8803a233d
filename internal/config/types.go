package config

import (
	"fmt"
	"time"
)

// Config represents the strand configuration file structure
type Config struct {
	// Jobs is the list of demo jobs to run on confined worker threads
	Jobs []JobConfig `yaml:"jobs,omitempty" json:"jobs,omitempty"`

	// Defaults contains default settings for runs
	Defaults DefaultsConfig `yaml:"defaults,omitempty" json:"defaults,omitempty"`
}

// JobConfig describes a single job executed on its own confined worker
type JobConfig struct {
	// Name identifies the job in logs and output
	Name string `yaml:"name" json:"name"`

	// Steps is how many timer ticks the job performs on its thread-affine
	// loop before requesting shutdown
	Steps int `yaml:"steps,omitempty" json:"steps,omitempty"`

	// StepDelay is the loop timer interval between steps
	StepDelay time.Duration `yaml:"stepDelay,omitempty" json:"stepDelay,omitempty"`

	// FailAt makes the job fail at the given step (0 means never), to
	// exercise failure propagation
	FailAt int `yaml:"failAt,omitempty" json:"failAt,omitempty"`
}

// DefaultsConfig contains default configuration values
type DefaultsConfig struct {
	// Timeout bounds a whole run
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Steps is the default step count for jobs that do not set one
	Steps int `yaml:"steps,omitempty" json:"steps,omitempty"`

	// StepDelay is the default step delay for jobs that do not set one
	StepDelay time.Duration `yaml:"stepDelay,omitempty" json:"stepDelay,omitempty"`

	// OutputFormat is the default output format (table, json, yaml)
	OutputFormat string `yaml:"outputFormat,omitempty" json:"outputFormat,omitempty"`

	// NoColor disables colored output
	NoColor bool `yaml:"noColor,omitempty" json:"noColor,omitempty"`
}

const (
	// DefaultSteps is used when neither job nor defaults specify a count
	DefaultSteps = 3

	// DefaultStepDelay is used when neither job nor defaults specify a delay
	DefaultStepDelay = 100 * time.Millisecond

	// DefaultTimeout bounds a run when the config does not
	DefaultTimeout = 30 * time.Second
)

// ApplyDefaults fills unset job fields from the defaults section, falling
// back to package defaults for anything the file leaves out.
func (c *Config) ApplyDefaults() {
	if c.Defaults.Steps <= 0 {
		c.Defaults.Steps = DefaultSteps
	}
	if c.Defaults.StepDelay <= 0 {
		c.Defaults.StepDelay = DefaultStepDelay
	}
	if c.Defaults.Timeout <= 0 {
		c.Defaults.Timeout = DefaultTimeout
	}

	for i := range c.Jobs {
		if c.Jobs[i].Steps <= 0 {
			c.Jobs[i].Steps = c.Defaults.Steps
		}
		if c.Jobs[i].StepDelay <= 0 {
			c.Jobs[i].StepDelay = c.Defaults.StepDelay
		}
	}
}

// SynthesizeJobs generates n uniformly configured jobs for runs that have no
// jobs section in the config file.
func (c *Config) SynthesizeJobs(n int) []JobConfig {
	if n <= 0 {
		n = 1
	}
	jobs := make([]JobConfig, n)
	for i := range jobs {
		jobs[i] = JobConfig{
			Name:      fmt.Sprintf("job-%d", i+1),
			Steps:     c.Defaults.Steps,
			StepDelay: c.Defaults.StepDelay,
		}
	}
	return jobs
}
