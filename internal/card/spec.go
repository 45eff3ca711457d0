package card

import (
	"encoding/json"
	"os"

	"github.com/rxtech-lab/systrade-bench/pkg/errors"
)

// ParamSpec describes one parameter of a frozen spec.
type ParamSpec struct {
	// Required defaults to true when the spec omits it.
	Required *bool  `json:"required"`
	Type     string `json:"type"`
}

// IsRequired reports whether the parameter must be declared.
func (p ParamSpec) IsRequired() bool {
	if p.Required == nil {
		return true
	}

	return *p.Required
}

// StrategySpec is the frozen, authoritative strategy definition. It is used
// only as a comparison baseline and never mutated.
type StrategySpec struct {
	StrategyID string               `json:"strategy_id"`
	Parameters map[string]ParamSpec `json:"parameters"`
}

// LoadSpec reads and parses a frozen spec document.
func LoadSpec(path string) (*StrategySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCodeSpecNotFound, err, "frozen spec not found: %s", path)
		}

		return nil, errors.Wrap(errors.ErrCodeSpecNotFound, "failed to read frozen spec", err)
	}

	var spec StrategySpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidCard, "frozen spec is not valid JSON", err)
	}

	return &spec, nil
}
