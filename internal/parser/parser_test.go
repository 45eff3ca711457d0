package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/systrade-bench/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = "Here is my strategy_card.json:\n\n" +
	"```json\n" +
	"{\"strategy_id\": \"bollinger_mean_reversion\", \"parameters\": {\"N\": 20}}\n" +
	"```\n\n" +
	"And the implementation:\n\n" +
	"```python\n" +
	"class Strategy:\n    pass\n" +
	"```\n"

func TestParseWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	p := NewParser(logger.NewNopLogger())

	require.NoError(t, p.Parse(sampleResponse, dir))

	card, err := os.ReadFile(filepath.Join(dir, "strategy_card.json"))
	require.NoError(t, err)
	assert.Contains(t, string(card), "bollinger_mean_reversion")

	code, err := os.ReadFile(filepath.Join(dir, "code", DefaultCodeFile))
	require.NoError(t, err)
	assert.Contains(t, string(code), "class Strategy")
}

func TestParseWithoutCard(t *testing.T) {
	p := NewParser(logger.NewNopLogger())

	err := p.Parse("no artifacts here", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no strategy card found")
}

func TestParseWithoutCode(t *testing.T) {
	p := NewParser(logger.NewNopLogger())

	response := "```json\n{\"strategy_id\": \"x\"}\n```\n"
	err := p.Parse(response, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no code blocks found")
}

func TestExtractCardFromRawBraces(t *testing.T) {
	p := NewParser(logger.NewNopLogger())

	response := `The card is {"strategy_id": "pairs_spread", "strategy_name": "Pairs"} as requested.`
	card := p.ExtractCard(response)
	require.NotNil(t, card)
	assert.Equal(t, "pairs_spread", card["strategy_id"])
}

func TestExtractCardIgnoresUnrelatedJSON(t *testing.T) {
	p := NewParser(logger.NewNopLogger())

	response := "```json\n{\"temperature\": 0.7}\n```\n"
	assert.Nil(t, p.ExtractCard(response))
}

func TestExtractNamedCodeBlocks(t *testing.T) {
	p := NewParser(logger.NewNopLogger())

	response := "```python:helpers.py\ndef helper():\n    pass\n```\n" +
		"```python\nclass Strategy:\n    pass\n```\n"

	blocks := p.ExtractCodeBlocks(response)
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks["helpers.py"], "def helper")
	assert.Contains(t, blocks[DefaultCodeFile], "class Strategy")
}

func TestExtractCommentNamedBlock(t *testing.T) {
	p := NewParser(logger.NewNopLogger())

	response := "# pairs.py\n```python\nx = 1\n```\n"

	blocks := p.ExtractCodeBlocks(response)
	require.Len(t, blocks, 1)
	assert.Equal(t, "x = 1", blocks["pairs.py"])
}

func TestFirstAnonymousBlockWins(t *testing.T) {
	p := NewParser(logger.NewNopLogger())

	response := "```python\nfirst = True\n```\n```python\nsecond = True\n```\n"

	blocks := p.ExtractCodeBlocks(response)
	require.Len(t, blocks, 1)
	assert.Equal(t, "first = True", blocks[DefaultCodeFile])
}
