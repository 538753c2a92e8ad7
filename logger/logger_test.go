package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-backend/config"
)

func TestProdLoggerWritesJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(config.EnvProd, &buf)

	log.Debug().Msg("hidden")
	log.Info().Str("download_id", "ebook-1").Msg("credited")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "credited", line["message"])
	assert.Equal(t, "ebook-1", line["download_id"])
	assert.Equal(t, "info", line["level"])
}

func TestDevLoggerKeepsDebug(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(config.EnvDev, &buf)

	log.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
