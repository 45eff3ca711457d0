package card

import (
	"encoding/json"
	"testing"

	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ParamsTestSuite struct {
	suite.Suite

	config *Config
}

func TestParamsSuite(t *testing.T) {
	suite.Run(t, new(ParamsTestSuite))
}

func (suite *ParamsTestSuite) SetupTest() {
	raw := `{
		"strategy_id": "bollinger_mean_reversion",
		"parameters": {
			"N": 20,
			"k": {"value": 2.0, "type": "float"},
			"stop_loss_pct": {"value": 0.10, "type": "float", "description": "hard stop"}
		}
	}`

	c, err := ParseCard([]byte(raw))
	suite.Require().NoError(err)
	suite.config = NewConfig(c)
}

// All five access idioms must resolve a parameter to the same scalar,
// whether it was declared bare or in the {value, ...metadata} form.
func (suite *ParamsTestSuite) TestAccessIdiomsAgree() {
	for _, name := range []string{"N", "k", "stop_loss_pct"} {
		// 1. direct key
		direct, ok := suite.config.Get(name)
		suite.Require().True(ok, name)

		// 2. key with default
		withDefault := suite.config.GetDefault(name, -1)

		// 3. nested parameters lookup
		nested, ok := suite.config.Params().Get(name)
		suite.Require().True(ok, name)

		// 4. nested lookup then ["value"]
		value, err := nested.Index("value")
		suite.Require().NoError(err, name)

		// 5. nested with default then .get("value", default)
		chained := suite.config.Params().GetDefault(name, nil).Get("value", -1)

		suite.Equal(direct, withDefault, name)
		suite.Equal(direct, nested.Value(), name)
		suite.Equal(direct, value.Value(), name)
		suite.Equal(direct, chained, name)
	}
}

func (suite *ParamsTestSuite) TestDefaultsWhenAbsent() {
	suite.Equal(7, suite.config.GetDefault("missing", 7))

	_, ok := suite.config.Get("missing")
	suite.False(ok)

	p := suite.config.Params().GetDefault("missing", 3.5)
	suite.Equal(3.5, p.Get("value", -1.0))
}

func (suite *ParamsTestSuite) TestMetadataAccess() {
	p, ok := suite.config.Params().Get("stop_loss_pct")
	suite.Require().True(ok)

	suite.Equal("hard stop", p.Get("description", ""))
	suite.Equal("fallback", p.Get("unknown", "fallback"))
	suite.True(p.Has("type"))
	suite.False(p.Has("unit"))
}

func (suite *ParamsTestSuite) TestCoercions() {
	n, ok := suite.config.Params().Get("N")
	suite.Require().True(ok)

	i, err := n.Int()
	suite.NoError(err)
	suite.Equal(20, i)

	f, err := n.Float()
	suite.NoError(err)
	suite.Equal(20.0, f)

	suite.Equal("20", n.String())
	suite.True(n.Bool())
}

func (suite *ParamsTestSuite) TestNormalizedJSONRoundTrip() {
	normalized, err := suite.config.NormalizedJSON()
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(normalized), &decoded))

	// Top-level scalar and nested structured form resolve identically.
	suite.Equal(20.0, decoded["N"])
	params, ok := decoded["parameters"].(map[string]any)
	suite.Require().True(ok)
	nested, ok := params["N"].(map[string]any)
	suite.Require().True(ok)
	suite.Equal(20.0, nested["value"])
}

func (suite *ParamsTestSuite) TestConfigDoesNotMutateCard() {
	before, err := json.Marshal(suite.config.Card().Parameters["k"])
	suite.Require().NoError(err)

	_, _ = suite.config.NormalizedJSON()
	_ = suite.config.GetDefault("k", 0)

	after, err := json.Marshal(suite.config.Card().Parameters["k"])
	suite.Require().NoError(err)
	suite.JSONEq(string(before), string(after))
}

func TestParamScalarCoercions(t *testing.T) {
	tests := []struct {
		name  string
		value any
		asInt int
		asStr string
	}{
		{name: "float", value: 2.0, asInt: 2, asStr: "2"},
		{name: "string number", value: "15", asInt: 15, asStr: "15"},
		{name: "bool", value: true, asInt: 1, asStr: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParam(tt.value)

			i, err := p.Int()
			require.NoError(t, err)
			assert.Equal(t, tt.asInt, i)
			assert.Equal(t, tt.asStr, p.String())
		})
	}
}

func TestParamIndexScalarIsTypeError(t *testing.T) {
	p := NewParam(42)

	_, err := p.Index("anything")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNestedParameter))
}

func TestParamDeepNestingIsTypeError(t *testing.T) {
	var p Param
	require.NoError(t, json.Unmarshal([]byte(`{"value": 1, "bounds": {"min": {"value": 0}}}`), &p))

	// one level of nesting resolves
	bounds, err := p.Index("bounds")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeNestedParameter))
	_ = bounds
}

func TestParamObjectWithoutValueKeepsStructure(t *testing.T) {
	var p Param
	require.NoError(t, json.Unmarshal([]byte(`{"min": 1, "max": 5}`), &p))

	assert.Equal(t, 1.0, p.Get("min", nil))
	assert.Equal(t, 5.0, p.Get("max", nil))
}

func TestParamDeclaredType(t *testing.T) {
	var withMeta Param
	require.NoError(t, json.Unmarshal([]byte(`{"value": 20, "type": "int"}`), &withMeta))
	assert.Equal(t, "int", withMeta.DeclaredType())

	assert.Equal(t, "int", NewParam(20.0).DeclaredType())
	assert.Equal(t, "float", NewParam(2.5).DeclaredType())
	assert.Equal(t, "string", NewParam("x").DeclaredType())
	assert.Equal(t, "bool", NewParam(true).DeclaredType())
}
