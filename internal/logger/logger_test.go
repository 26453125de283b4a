package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetFlags(0)
	t.Cleanup(func() {
		SetLevel(INFO)
		ResetSecrets()
	})

	return &buf
}

func TestInfo_MasksRegisteredSecrets(t *testing.T) {
	buf := captureOutput(t)
	RegisterSecret("hunter2")

	Info("authenticating with password %s", "hunter2")

	assert.Equal(t, "[INFO] [SFTPFIND] authenticating with password ********\n", buf.String())
}

func TestRegisterSecret_IgnoresEmptyValue(t *testing.T) {
	buf := captureOutput(t)
	RegisterSecret("")

	Info("nothing to hide")

	assert.Equal(t, "[INFO] [SFTPFIND] nothing to hide\n", buf.String())
}

func TestSetLevel_FiltersLowerLevels(t *testing.T) {
	buf := captureOutput(t)
	SetLevel(WARN)

	Debug("debug line")
	Info("info line")
	Warn("warn line")

	assert.Equal(t, "[WARN] [SFTPFIND] warn line\n", buf.String())
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, DEBUG, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, INFO, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b c", Sanitize("a\nb\tc"))
	assert.Equal(t, "ab", Sanitize("a\x00b"))
}
