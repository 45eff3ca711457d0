package strategy

import (
	"context"
	"testing"

	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairsFailsWithPairedColumnSignature(t *testing.T) {
	s := NewPairs()
	require.NoError(t, s.Initialize(""))

	_, err := s.Run(context.Background(), makeBars(dipAndRecover()), 100000)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMultiAssetRequired))
	assert.Contains(t, err.Error(), "'close_x'")
	assert.Contains(t, err.Error(), "'close_y'")
}
