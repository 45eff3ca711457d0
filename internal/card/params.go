package card

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rxtech-lab/systrade-bench/pkg/errors"
)

// Param is a tagged parameter value. It carries the resolved scalar and,
// when the declaration used the `{value, ...metadata}` form, the original
// structured form. Hosted code cannot be constrained to one access idiom,
// so every idiom resolves through this type to the same scalar.
type Param struct {
	value    any
	original map[string]any
}

// NewParam wraps a bare scalar.
func NewParam(value any) Param {
	return Param{value: value, original: nil}
}

// UnmarshalJSON accepts either a bare scalar or a `{value, ...metadata}`
// object. An object without a "value" key keeps the whole object as the
// resolved value, matching the one-level nesting contract.
func (p *Param) UnmarshalJSON(data []byte) error {
	var structured map[string]any
	if err := json.Unmarshal(data, &structured); err == nil {
		p.original = structured
		if v, ok := structured["value"]; ok {
			p.value = v
		} else {
			p.value = structured
		}

		return nil
	}

	var scalar any
	if err := json.Unmarshal(data, &scalar); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "parameter is neither scalar nor object", err)
	}

	p.value = scalar
	p.original = nil

	return nil
}

// MarshalJSON writes the normalized structured form.
func (p Param) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Normalized())
}

// Value returns the resolved scalar.
func (p Param) Value() any {
	return p.value
}

// Get implements the `.get(key, default)` idiom. "value" always resolves to
// the scalar; other keys resolve through the original structured form.
func (p Param) Get(key string, def any) any {
	if key == "value" {
		return p.value
	}

	if p.original != nil {
		if v, ok := p.original[key]; ok {
			return v
		}
	}

	return def
}

// Index resolves one level of structured nesting: a metadata entry that is
// itself a `{value, ...}` object comes back as a Param. Indexing into a
// scalar parameter is a type error, never a silent wrong value.
func (p Param) Index(key string) (Param, error) {
	if key == "value" {
		return NewParam(p.value), nil
	}

	if p.original == nil {
		return Param{}, errors.Newf(errors.ErrCodeNestedParameter,
			"parameter of type %T is not indexable", p.value)
	}

	v, ok := p.original[key]
	if !ok {
		return Param{}, errors.Newf(errors.ErrCodeNestedParameter, "parameter has no key %q", key)
	}

	if nested, ok := v.(map[string]any); ok {
		if inner, ok := nested["value"]; ok {
			return Param{value: inner, original: nested}, nil
		}

		// Deeper nesting is out of scope.
		return Param{}, errors.Newf(errors.ErrCodeNestedParameter,
			"parameter key %q nests deeper than one level", key)
	}

	return NewParam(v), nil
}

// Has reports whether the structured form contains key.
func (p Param) Has(key string) bool {
	if p.original == nil {
		return false
	}

	_, ok := p.original[key]

	return ok
}

// Int coerces the scalar to an int.
func (p Param) Int() (int, error) {
	switch v := p.value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "cannot coerce %q to int", v)
		}

		return int(f), nil
	case bool:
		if v {
			return 1, nil
		}

		return 0, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "cannot coerce %T to int", p.value)
	}
}

// Float coerces the scalar to a float64.
func (p Param) Float() (float64, error) {
	switch v := p.value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "cannot coerce %q to float", v)
		}

		return f, nil
	case bool:
		if v {
			return 1, nil
		}

		return 0, nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "cannot coerce %T to float", p.value)
	}
}

// String coerces the scalar to its string form.
func (p Param) String() string {
	switch v := p.value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", p.value)
	}
}

// Bool coerces the scalar to a bool. Zero numbers, empty strings, and nil
// are false; everything else is true.
func (p Param) Bool() bool {
	switch v := p.value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v != ""
	case nil:
		return false
	default:
		return true
	}
}

// DeclaredType returns the type the declaration claims for this parameter:
// the "type" metadata entry when present, otherwise a type inferred from the
// scalar itself.
func (p Param) DeclaredType() string {
	if p.original != nil {
		if t, ok := p.original["type"].(string); ok {
			return t
		}
	}

	switch v := p.value.(type) {
	case bool:
		return "bool"
	case string:
		return "string"
	case float64:
		if v == float64(int64(v)) {
			return "int"
		}

		return "float"
	case int, int64:
		return "int"
	default:
		return fmt.Sprintf("%T", p.value)
	}
}

// Normalized returns the canonical structured form `{value, ...metadata}`.
func (p Param) Normalized() map[string]any {
	normalized := map[string]any{"value": p.value}

	for k, v := range p.original {
		if k == "value" {
			continue
		}

		normalized[k] = v
	}

	return normalized
}

// ParamSet is the nested "parameters" view of a configuration.
type ParamSet map[string]Param

// Get returns the named parameter.
func (s ParamSet) Get(name string) (Param, bool) {
	p, ok := s[name]

	return p, ok
}

// GetDefault returns the named parameter, or a Param wrapping def when the
// name is absent, so `params.get(name, {}).get("value", d)` chains resolve.
func (s ParamSet) GetDefault(name string, def any) Param {
	if p, ok := s[name]; ok {
		return p
	}

	return NewParam(def)
}

// Names returns the declared parameter names.
func (s ParamSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}

	return names
}

// Config is the adapter handed to one strategy instantiation. It flattens a
// declaration's parameters so direct key lookup, default-get, and the nested
// parameters views all resolve to the same scalar. It never mutates the
// source declaration and is not shared across submissions.
type Config struct {
	card   *StrategyCard
	params ParamSet
}

// NewConfig wraps a declaration's parameters.
func NewConfig(card *StrategyCard) *Config {
	params := make(ParamSet, len(card.Parameters))
	for name, p := range card.Parameters {
		params[name] = p
	}

	return &Config{
		card:   card,
		params: params,
	}
}

// Get is the top-level key lookup idiom: the resolved scalar of a parameter.
func (c *Config) Get(name string) (any, bool) {
	if p, ok := c.params[name]; ok {
		return p.Value(), true
	}

	return nil, false
}

// GetDefault is the top-level lookup-with-default idiom.
func (c *Config) GetDefault(name string, def any) any {
	if p, ok := c.params[name]; ok {
		return p.Value()
	}

	return def
}

// Params returns the nested parameters view.
func (c *Config) Params() ParamSet {
	return c.params
}

// Card returns the wrapped declaration.
func (c *Config) Card() *StrategyCard {
	return c.card
}

// NormalizedJSON renders the configuration in the canonical wire form passed
// to hosted code: every parameter exposed both as a top-level scalar and
// under "parameters" in the structured `{value, ...metadata}` form.
func (c *Config) NormalizedJSON() (string, error) {
	flat := map[string]any{
		"strategy_id": c.card.StrategyID,
	}

	if c.card.StrategyName != "" {
		flat["strategy_name"] = c.card.StrategyName
	}

	if len(c.card.Constraints) > 0 {
		flat["constraints"] = c.card.Constraints
	}

	structured := make(map[string]any, len(c.params))

	for name, p := range c.params {
		flat[name] = p.Value()
		structured[name] = p.Normalized()
	}

	flat["parameters"] = structured

	data, err := json.Marshal(flat)
	if err != nil {
		return "", fmt.Errorf("failed to marshal normalized config: %w", err)
	}

	return string(data), nil
}
