package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/poiesic/curator/core"
)

// Duration is a time.Duration that decodes from strings such as "30s" or "1m30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// File is the on-disk shape of a run configuration. Absent keys keep the
// defaults they are applied over.
type File struct {
	NumAgents              *int      `toml:"num_agents"`
	SearchesPerAgent       *int      `toml:"searches_per_agent"`
	MaxSearchResults       *int      `toml:"max_search_results"`
	MaxConcurrentAgents    *int      `toml:"max_concurrent_agents"`
	RelevanceThreshold     *float64  `toml:"relevance_threshold"`
	EnableLearning         *bool     `toml:"enable_learning"`
	Strategy               *string   `toml:"strategy"`
	Exploration            *float64  `toml:"exploration"`
	ProgressReportInterval *Duration `toml:"progress_report_interval"`
	ProgressReportEvery    *int      `toml:"progress_report_every"`
	FetchTimeout           *Duration `toml:"fetch_timeout"`
	FetchRetries           *int      `toml:"fetch_retries"`
	RetryDelay             *Duration `toml:"retry_delay"`
	QueryDelay             *Duration `toml:"query_delay"`
	MaxPatternFailures     *int      `toml:"max_pattern_failures"`
	MaxEntries             *int64    `toml:"max_entries"`
	MaxDuration            *Duration `toml:"max_duration"`
	CeilingCheckInterval   *Duration `toml:"ceiling_check_interval"`
	ShareLearning          *bool     `toml:"share_learning"`
	MergeInterval          *Duration `toml:"merge_interval"`
	Resume                 *bool     `toml:"resume"`
	Seed                   *uint64   `toml:"seed"`
}

// Parse decodes TOML data. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, &core.ConfigError{Field: "file", Err: errors.New(strict.String())}
		}
		return nil, &core.ConfigError{Field: "file", Err: err}
	}
	return &f, nil
}

// LoadFile reads the TOML file at path and applies it over DefaultConfig.
// The result is validated.
func LoadFile(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ConfigError{Field: "file", Err: fmt.Errorf("read %s: %w", path, err)}
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := f.Apply(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply copies every key present in f onto cfg.
func (f *File) Apply(cfg *RunConfig) error {
	setInt(&cfg.NumAgents, f.NumAgents)
	setInt(&cfg.SearchesPerAgent, f.SearchesPerAgent)
	setInt(&cfg.MaxSearchResults, f.MaxSearchResults)
	setInt(&cfg.MaxConcurrentAgents, f.MaxConcurrentAgents)
	setInt(&cfg.ProgressReportEvery, f.ProgressReportEvery)
	setInt(&cfg.FetchRetries, f.FetchRetries)
	setInt(&cfg.MaxPatternFailures, f.MaxPatternFailures)

	if f.RelevanceThreshold != nil {
		cfg.RelevanceThreshold = *f.RelevanceThreshold
	}
	if f.Exploration != nil {
		cfg.Exploration = *f.Exploration
	}
	if f.EnableLearning != nil {
		cfg.EnableLearning = *f.EnableLearning
	}
	if f.ShareLearning != nil {
		cfg.ShareLearning = *f.ShareLearning
	}
	if f.Resume != nil {
		cfg.Resume = *f.Resume
	}
	if f.MaxEntries != nil {
		cfg.MaxEntries = *f.MaxEntries
	}
	if f.Seed != nil {
		cfg.Seed = *f.Seed
	}
	if f.Strategy != nil {
		s, err := core.ParseStrategy(*f.Strategy)
		if err != nil {
			return &core.ConfigError{Field: "strategy", Err: err}
		}
		cfg.Strategy = s
	}

	setDuration(&cfg.ProgressReportInterval, f.ProgressReportInterval)
	setDuration(&cfg.FetchTimeout, f.FetchTimeout)
	setDuration(&cfg.RetryDelay, f.RetryDelay)
	setDuration(&cfg.QueryDelay, f.QueryDelay)
	setDuration(&cfg.MaxDuration, f.MaxDuration)
	setDuration(&cfg.CeilingCheckInterval, f.CeilingCheckInterval)
	setDuration(&cfg.MergeInterval, f.MergeInterval)
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *Duration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}
