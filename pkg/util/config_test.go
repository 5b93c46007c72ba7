package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 100.0, cfg.ClassSpeedsKmh["motorway"])
	assert.Equal(t, 5.0, cfg.ClassSpeedsKmh["living_street"])
	assert.Equal(t, 30.0, cfg.DefaultSpeedKmh)
	assert.Contains(t, cfg.AcceptedHighways, "residential")
	assert.NotContains(t, cfg.AcceptedHighways, "footway")
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapRadiusMeter = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadParamInput)

	cfg = DefaultConfig()
	cfg.MatrixMaxCells = -1
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.AcceptedHighways = nil
	require.Error(t, cfg.Validate())
}
