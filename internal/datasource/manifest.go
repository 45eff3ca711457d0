// Package datasource loads market OHLCV data described by a data manifest.
package datasource

import (
	"os"
	"path/filepath"

	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Instrument is one tradable symbol and its backing CSV file.
type Instrument struct {
	Symbol  string `yaml:"symbol"`
	CSVFile string `yaml:"csv_file"`
}

// CSVFormat documents the expected column layout of a market's files.
type CSVFormat struct {
	Columns []string `yaml:"columns"`
}

// ResampleConfig describes how a derived market is computed from its source.
type ResampleConfig struct {
	TargetFreq string `yaml:"target_freq"`
}

// Market is one entry in the manifest. A market with DerivedFrom set has no
// files of its own until resampled output is saved.
type Market struct {
	Enabled        *bool           `yaml:"enabled"`
	BasePath       string          `yaml:"base_path"`
	Frequency      string          `yaml:"frequency"`
	Timezone       string          `yaml:"timezone"`
	CSVFormat      CSVFormat       `yaml:"csv_format"`
	Instruments    []Instrument    `yaml:"instruments"`
	DerivedFrom    string          `yaml:"derived_from"`
	ResampleConfig *ResampleConfig `yaml:"resample_config"`
}

// IsEnabled defaults to true when the manifest omits the flag.
func (m *Market) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// Instrument returns the instrument entry for symbol.
func (m *Market) Instrument(symbol string) (Instrument, bool) {
	for _, instrument := range m.Instruments {
		if instrument.Symbol == symbol {
			return instrument, true
		}
	}

	return Instrument{}, false
}

// Manifest is the parsed data_manifest.yaml.
type Manifest struct {
	DataRoot string             `yaml:"data_root"`
	Markets  map[string]*Market `yaml:"markets"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read manifest: %s", path)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataNotFound, "manifest is not valid YAML", err)
	}

	return &manifest, nil
}

// resolveDataRoot resolves the manifest's data root relative to the manifest
// location, mirroring how the manifest is written.
func resolveDataRoot(manifestPath, dataRoot string) string {
	if filepath.IsAbs(dataRoot) {
		return dataRoot
	}

	return filepath.Join(filepath.Dir(manifestPath), "..", dataRoot)
}
