// Package parser extracts submission artifacts from raw model output: the
// strategy card JSON and the strategy code blocks.
package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rxtech-lab/systrade-bench/internal/logger"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"go.uber.org/zap"
)

// DefaultCodeFile is the canonical code file name when blocks carry none.
const DefaultCodeFile = "strategy.py"

var (
	jsonFencePatterns = []*regexp.Regexp{
		regexp.MustCompile("(?is)```json\\s*\\n(.*?)\\n```"),
		regexp.MustCompile("(?s)```\\s*\\n(\\{.*?\\})\\s*\\n```"),
	}

	// ```python:pairs.py style fences with an explicit file name.
	namedCodeFence = regexp.MustCompile("(?is)```[a-z]+:([^\\s`]+)\\s*\\n(.*?)\\n```")
	// # strategy.py comment directly above a fence.
	commentNamedFence = regexp.MustCompile("(?is)#\\s*([^\\s`]+\\.(?:py|go|rs|js))\\s*\\n```[a-z]*\\s*\\n(.*?)\\n```")
	// Anonymous python fences fall back to the canonical file name.
	anonymousCodeFence = regexp.MustCompile("(?is)```(?:python|py)\\s*\\n(.*?)\\n```")
)

// Parser turns raw response text into an on-disk submission layout.
type Parser struct {
	logger *logger.Logger
}

// NewParser creates a response parser.
func NewParser(logger *logger.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts strategy_card.json and all code blocks from response and
// writes them under outputDir (the card at the root, code under code/).
func (p *Parser) Parse(response, outputDir string) error {
	card := p.ExtractCard(response)
	if card == nil {
		return errors.New(errors.ErrCodeInvalidCard, "no strategy card found in response")
	}

	cardJSON, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidCard, "failed to serialize strategy card", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to create output directory", err)
	}

	if err := os.WriteFile(filepath.Join(outputDir, "strategy_card.json"), cardJSON, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to write strategy card", err)
	}

	blocks := p.ExtractCodeBlocks(response)
	if len(blocks) == 0 {
		return errors.New(errors.ErrCodeStrategyFileNotFound, "no code blocks found in response")
	}

	codeDir := filepath.Join(outputDir, "code")
	if err := os.MkdirAll(codeDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeUnknown, "failed to create code directory", err)
	}

	for filename, content := range blocks {
		if err := os.WriteFile(filepath.Join(codeDir, filename), []byte(content), 0644); err != nil {
			return errors.Wrapf(errors.ErrCodeUnknown, err, "failed to write %s", filename)
		}

		p.logger.Info("saved code file", zap.String("file", filename))
	}

	p.logger.Info("parsed response", zap.Int("code_files", len(blocks)))

	return nil
}

// ExtractCard finds the strategy card object in the response. Fenced JSON
// blocks are tried first, then a raw brace scan of the whole text.
func (p *Parser) ExtractCard(response string) map[string]any {
	for _, pattern := range jsonFencePatterns {
		for _, match := range pattern.FindAllStringSubmatch(response, -1) {
			if card := decodeCard(match[1]); card != nil {
				return card
			}
		}
	}

	return scanBraces(response)
}

// ExtractCodeBlocks collects all code blocks keyed by file name. Named
// fences win over anonymous ones; the first anonymous block takes the
// canonical name.
func (p *Parser) ExtractCodeBlocks(response string) map[string]string {
	blocks := make(map[string]string)

	for _, pattern := range []*regexp.Regexp{namedCodeFence, commentNamedFence} {
		for _, match := range pattern.FindAllStringSubmatch(response, -1) {
			name := strings.TrimSpace(match[1])
			if _, ok := blocks[name]; !ok {
				blocks[name] = strings.TrimSpace(match[2])
			}
		}
	}

	for _, match := range anonymousCodeFence.FindAllStringSubmatch(response, -1) {
		if _, ok := blocks[DefaultCodeFile]; ok {
			break
		}

		content := strings.TrimSpace(match[1])
		if containsValue(blocks, content) {
			// A named pattern already captured this fence.
			continue
		}

		blocks[DefaultCodeFile] = content
	}

	return blocks
}

func containsValue(blocks map[string]string, content string) bool {
	for _, v := range blocks {
		if v == content {
			return true
		}
	}

	return false
}

// decodeCard parses candidate JSON and keeps it only when it looks like a
// strategy card.
func decodeCard(candidate string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil
	}

	if _, ok := obj["strategy_id"]; ok {
		return obj
	}

	if _, ok := obj["strategy_name"]; ok {
		return obj
	}

	return nil
}

// scanBraces walks the text balancing braces and tries each top-level
// object as a card.
func scanBraces(text string) map[string]any {
	depth := 0
	start := -1

	for i, char := range text {
		switch char {
		case '{':
			if depth == 0 {
				start = i
			}

			depth++
		case '}':
			if depth == 0 {
				continue
			}

			depth--
			if depth == 0 && start >= 0 {
				if card := decodeCard(text[start : i+1]); card != nil {
					return card
				}

				start = -1
			}
		}
	}

	return nil
}
