// Package card parses and adapts strategy declarations ("strategy cards")
// and the frozen specs they are checked against.
package card

import (
	"encoding/json"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
)

// CardFileName is the well-known declaration file inside a submission directory.
const CardFileName = "strategy_card.json"

// EntryFunction names the code file and symbol to invoke.
type EntryFunction struct {
	// File is the code file, relative to the submission's code/ directory.
	File string `json:"file"`
	// Symbol is the entry-point symbol resolved from the loaded unit.
	Symbol string `json:"class_or_function"`
}

// OutputSpec declares the column sets the strategy promises to emit.
type OutputSpec struct {
	TradeLogColumns []string `json:"trade_log_columns"`
	AuditLogColumns []string `json:"audit_log_columns"`
}

// StrategyCard is the submission's self-described configuration and interface
// metadata. It is produced by response extraction and read-only to this core.
type StrategyCard struct {
	StrategyID    string           `json:"strategy_id" validate:"required"`
	StrategyName  string           `json:"strategy_name"`
	ABIVersion    string           `json:"abi_version"`
	EntryFunction EntryFunction    `json:"entry_function"`
	Parameters    map[string]Param `json:"parameters"`
	Constraints   map[string]any   `json:"constraints"`
	OutputSpec    OutputSpec       `json:"output_specification"`
}

// defaults applied when the declaration omits entry-point details.
const (
	DefaultEntryFile   = "strategy.wasm"
	DefaultEntrySymbol = "run"
)

// ParseCard parses a declaration document from raw JSON.
func ParseCard(data []byte) (*StrategyCard, error) {
	var c StrategyCard
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCard, "strategy card is not valid JSON", err)
	}

	if c.EntryFunction.File == "" {
		c.EntryFunction.File = DefaultEntryFile
	}

	if c.EntryFunction.Symbol == "" {
		c.EntryFunction.Symbol = DefaultEntrySymbol
	}

	validate := validator.New()
	if err := validate.Struct(&c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCard, "strategy card failed validation", err)
	}

	return &c, nil
}

// LoadCard reads and parses the declaration document at path.
func LoadCard(path string) (*StrategyCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCodeCardNotFound, err, "strategy card not found: %s", path)
		}

		return nil, errors.Wrap(errors.ErrCodeInvalidCard, "failed to read strategy card", err)
	}

	return ParseCard(data)
}

// MaxPositionSize returns the declared max_position_size constraint, or def
// when the declaration does not carry one.
func (c *StrategyCard) MaxPositionSize(def float64) float64 {
	v, ok := c.Constraints["max_position_size"]
	if !ok {
		return def
	}

	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}
