package logging

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewParsesLevel(t *testing.T) {
	logger := New(Options{Level: "warn"})
	require.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	logger := New(Options{Level: "not-a-level"})
	require.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
