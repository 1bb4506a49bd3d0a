package observability_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swipestay/internal/adapters/observability"
)

func TestNewLoggerTo_JSONCarriesServiceAndDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	l := observability.NewLoggerTo(&buf, "prod", "swipestay-api")

	l.Debug().Msg("hidden")
	l.Info().Str("k", "v").Msg("hello")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "swipestay-api", rec["service"])
	assert.Equal(t, "prod", rec["env"])
	assert.Equal(t, "hello", rec["message"])
	assert.Equal(t, "v", rec["k"])
	assert.Contains(t, rec, "time")
}

func TestNewLoggerTo_DevIsConsoleAtDebug(t *testing.T) {
	var buf bytes.Buffer
	l := observability.NewLoggerTo(&buf, "dev", "swipestay-search")

	l.Debug().Msg("visible")

	out := buf.String()
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "service=swipestay-search")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "console output is not JSON")
}
