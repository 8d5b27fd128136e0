package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DebugWritesText(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Debug("starting", "port", "8080")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "msg=starting")
	assert.Contains(t, out, "port=8080")
}

func TestNew_ReleaseWritesJSONAndDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)

	l.Debug("hidden")
	l.Info("login", "handler", "Login")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "login", entry["msg"])
	assert.Equal(t, "Login", entry["handler"])
}
