package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	InitTo(&buf, "warn", "json")
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	l := Component("uploader")
	l.Info().Msg("dropped")
	l.Warn().Str("package_id", "p-1").Msg("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "uploader", entry["component"])
	assert.Equal(t, "p-1", entry["package_id"])
}

func TestInitTo_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitTo(&buf, "loud", "json")

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
