package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := setup(&buf, "dealsd", "test")
	logger.Info("started", Secret("hmacSecret", "s3cr3t"), Secret("empty", ""))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "started", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "dealsd", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
	require.Equal(t, RedactedValue, line["hmacSecret"])
	require.Equal(t, "", line["empty"])
}

func TestFileConfigWriter(t *testing.T) {
	require.Nil(t, FileConfig{}.writer())
	path := filepath.Join(t.TempDir(), "dealsd.log")
	require.NotNil(t, FileConfig{Path: path, MaxSizeMB: 1}.writer())
}
