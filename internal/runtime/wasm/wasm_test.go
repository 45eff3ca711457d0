package wasm

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/systrade-bench/internal/card"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	loader := NewLoader()

	_, err := loader.Load(context.Background(), t.TempDir(), card.EntryFunction{
		File:   "strategy.wasm",
		Symbol: "run",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeStrategyFileNotFound))
	assert.Contains(t, err.Error(), "strategy.wasm")
}

func TestLoadInvalidModule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "strategy.wasm"), []byte("not wasm"), 0644))

	loader := NewLoader()

	_, err := loader.Load(context.Background(), dir, card.EntryFunction{
		File:   "strategy.wasm",
		Symbol: "run",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeGuestABIError))
}

func TestLoadMissingSymbol(t *testing.T) {
	// Smallest valid module: magic + version, no exports.
	empty := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "strategy.wasm"), empty, 0644))

	loader := NewLoader()

	_, err := loader.Load(context.Background(), dir, card.EntryFunction{
		File:   "strategy.wasm",
		Symbol: "run",
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeEntrySymbolNotFound))
	assert.Contains(t, err.Error(), `"run"`)
}
