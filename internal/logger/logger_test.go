package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandlerFormats(t *testing.T) {
	var text bytes.Buffer
	slog.New(newHandler(&text, true, false, "")).Info("reconciled", "folder", "Light Leaks")
	assert.Contains(t, text.String(), `folder="Light Leaks"`)

	var js bytes.Buffer
	slog.New(newHandler(&js, false, false, "")).Info("reconciled", "created", 2)
	var record map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &record))
	assert.Equal(t, "reconciled", record["msg"])
	assert.Equal(t, float64(2), record["created"])
}

func TestNewHandlerVerbosity(t *testing.T) {
	var quiet bytes.Buffer
	slog.New(newHandler(&quiet, true, false, "")).Debug("hidden")
	assert.Empty(t, quiet.String())

	var verbose bytes.Buffer
	slog.New(newHandler(&verbose, true, true, "")).Debug("shown")
	assert.Contains(t, verbose.String(), "shown")
}
