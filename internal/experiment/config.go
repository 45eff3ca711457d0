// Package experiment holds the experiment-level configuration: time splits,
// evaluation settings, and the strategies under test.
package experiment

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/systrade-bench/internal/datasource"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"gopkg.in/yaml.v2"
)

// splitTimeLayouts are the accepted timestamp forms in experiment files.
var splitTimeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// Split is one named time window. Min is inclusive, Max exclusive; either
// side may be open.
type Split struct {
	TimeMin optional.Option[time.Time] `yaml:"time_min" json:"time_min" jsonschema:"title=Start Time,description=Window start inclusive"`
	TimeMax optional.Option[time.Time] `yaml:"time_max" json:"time_max" jsonschema:"title=End Time,description=Window end exclusive"`
}

// UnmarshalYAML implements custom unmarshaling for Split.
func (s *Split) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type rawSplit struct {
		TimeMin *string `yaml:"time_min"`
		TimeMax *string `yaml:"time_max"`
	}

	var raw rawSplit
	if err := unmarshal(&raw); err != nil {
		return err
	}

	if raw.TimeMin != nil {
		t, err := parseSplitTime(*raw.TimeMin)
		if err != nil {
			return err
		}

		s.TimeMin = optional.Some(t)
	}

	if raw.TimeMax != nil {
		t, err := parseSplitTime(*raw.TimeMax)
		if err != nil {
			return err
		}

		s.TimeMax = optional.Some(t)
	}

	if s.TimeMin.IsSome() && s.TimeMax.IsSome() && !s.TimeMin.Unwrap().Before(s.TimeMax.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidSplitConfig, "time_min must precede time_max")
	}

	return nil
}

// Range converts the split to a datasource time range.
func (s Split) Range() datasource.TimeRange {
	return datasource.TimeRange{Min: s.TimeMin, Max: s.TimeMax}
}

func parseSplitTime(value string) (time.Time, error) {
	for _, layout := range splitTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, errors.Newf(errors.ErrCodeInvalidSplitConfig, "unparseable split time: %s", value)
}

// Evaluation configures the scoring pass.
type Evaluation struct {
	CostSweep      []float64 `yaml:"cost_sweep" json:"cost_sweep" jsonschema:"title=Cost Sweep,description=Per-trade cost rates to sweep during robustness checks"`
	InitialCapital float64   `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting capital in USD,minimum=0"`
}

// StrategyConfig names one strategy under test and where its frozen spec
// lives.
type StrategyConfig struct {
	StrategyID string   `yaml:"strategy_id" json:"strategy_id" validate:"required" jsonschema:"title=Strategy ID"`
	SpecPath   string   `yaml:"spec_path" json:"spec_path" validate:"required" jsonschema:"title=Spec Path,description=Directory holding spec.json and spec.md"`
	Markets    []string `yaml:"markets" json:"markets" jsonschema:"title=Markets,description=Market IDs this strategy is evaluated on"`
}

// Config is the parsed experiment.yaml.
type Config struct {
	ExperimentName string           `yaml:"experiment_name" json:"experiment_name" jsonschema:"title=Experiment Name"`
	TimeSplits     map[string]Split `yaml:"time_splits" json:"time_splits" validate:"required" jsonschema:"title=Time Splits,description=Named train/test/OOS windows"`
	Evaluation     Evaluation       `yaml:"evaluation" json:"evaluation" jsonschema:"title=Evaluation"`
	Strategies     []StrategyConfig `yaml:"strategies" json:"strategies" validate:"dive" jsonschema:"title=Strategies"`
}

// LoadConfig reads, parses, and validates an experiment file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read experiment config: %s", path)
	}

	return ParseConfig(data)
}

// ParseConfig parses and validates raw experiment YAML.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSplitConfig, "experiment config is not valid YAML", err)
	}

	validate := validator.New()
	if err := validate.Struct(&config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidSplitConfig, "experiment config failed validation", err)
	}

	return &config, nil
}

// Split returns the named time split.
func (c *Config) Split(name string) (Split, error) {
	split, ok := c.TimeSplits[name]
	if !ok {
		return Split{}, errors.Newf(errors.ErrCodeInvalidSplitConfig, "time split %s not configured", name)
	}

	return split, nil
}

// Strategy returns the configuration of the named strategy.
func (c *Config) Strategy(strategyID string) (StrategyConfig, error) {
	for _, s := range c.Strategies {
		if s.StrategyID == strategyID {
			return s, nil
		}
	}

	return StrategyConfig{}, errors.Newf(errors.ErrCodeUnknown, "strategy %s not found in experiment config", strategyID)
}

// GenerateSchema generates a JSON schema for the experiment config.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "experiment-config"
	schema.Description = "Configuration schema for an evaluation experiment"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the experiment
// config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
