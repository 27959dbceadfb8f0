package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupRenamesKeysAndTagsService(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := Setup("prizepoold", "test", Options{Output: &buf})
	defer closer.Close()

	logger.Info("started", MaskField("token", "secret"), MaskField("method", "prize_status"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "started", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "prizepoold", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, RedactedValue, line["token"])
	require.Equal(t, "prize_status", line["method"])
	require.Contains(t, line, "timestamp")
}

func TestSetupWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")
	var buf bytes.Buffer
	logger, closer := Setup("prizepoold", "", Options{Output: &buf, File: path, MaxSizeMB: 1})
	logger.Warn("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")
	require.Equal(t, buf.String(), string(data))
}

func TestSetupHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := Setup("svc", "", Options{Output: &buf, Level: ParseLevel("warn")})
	logger.Info("hidden")
	require.Zero(t, buf.Len())
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("authToken", "s3cret").Value.String())
	require.Equal(t, " ", MaskField("authToken", " ").Value.String())
	require.Equal(t, "203.0.113.9", MaskField("Remote", "203.0.113.9").Value.String())
	require.True(t, IsAllowlisted(" RequestID "))
	require.False(t, IsAllowlisted("authorization"))
}
