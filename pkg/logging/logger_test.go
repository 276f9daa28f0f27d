package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: "warn", Output: &buf})
	defer Setup(DefaultConfig())

	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "v", entry["k"])
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestSetup_BadLevel(t *testing.T) {
	Setup(Config{Level: "loud", Output: &bytes.Buffer{}})
	defer Setup(DefaultConfig())
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestFromContext_RunID(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: "info", Output: &buf})
	defer Setup(DefaultConfig())

	ctx, id := NewRunContext(context.Background())
	require.NotEmpty(t, id)
	assert.Equal(t, id, RunID(ctx))

	logger := FromContext(ctx)
	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, id, entry["run_id"])

	assert.Empty(t, RunID(context.Background()))
}

func TestNewZapLogger(t *testing.T) {
	logger, err := NewZapLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	logger, err = NewZapLogger("nonsense")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))
}
