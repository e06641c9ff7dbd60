package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func newBufferLogger(t *testing.T) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return New(zapcore.AddSync(buf)), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestLogger_WritesStructuredFields(t *testing.T) {
	l, buf := newBufferLogger(t)
	l.log(INFO, "count executed", "table", "resident_core", "size", 2)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "count executed", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "resident_core", lines[0]["table"])
	assert.Equal(t, "2", lines[0]["size"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t)
	l.log(DEBUG, "hidden")
	assert.Empty(t, buf.String())

	l.SetLevel(DEBUG)
	l.log(DEBUG, "shown")
	assert.Len(t, decodeLines(t, buf), 1)

	l.SetLevel(ERROR)
	l.log(WARN, "hidden again")
	assert.Len(t, decodeLines(t, buf), 1)
}

func TestLogger_RedactsSecrets(t *testing.T) {
	l, buf := newBufferLogger(t)
	l.log(INFO, "configured",
		"api_key", "sk-abcdefghijkl1234",
		"database_url", "postgres://app:hunter2@db:5432/analytics",
		"note", "host=db password=hunter2 dbname=x",
	)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "***1234", lines[0]["api_key"])
	assert.Equal(t, "postgres://app:***@db:5432/analytics", lines[0]["database_url"])
	assert.Equal(t, "host=db password=*** dbname=x", lines[0]["note"])
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestRedactSecret_Short(t *testing.T) {
	assert.Equal(t, "***", RedactSecret("abc"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("DEBUG"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestLogger_TokenCountsAreNotSecrets(t *testing.T) {
	l, buf := newBufferLogger(t)
	l.log(INFO, "bedrock: response",
		"input_tokens", 812,
		"output_tokens", 64,
		"auth_token", "tok-abcdefgh5678",
		"accessToken", "abcdefghijkl9999",
	)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "812", lines[0]["input_tokens"])
	assert.Equal(t, "64", lines[0]["output_tokens"])
	assert.Equal(t, "***5678", lines[0]["auth_token"])
	assert.Equal(t, "***9999", lines[0]["accessToken"])
}
