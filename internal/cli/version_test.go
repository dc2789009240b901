package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatVersion(t *testing.T) {
	assert.Equal(t, "dev", formatVersion("dev"))
	assert.Equal(t, "", formatVersion(""))
	assert.Equal(t, "v1.2.0", formatVersion("1.2.0"))
	assert.Equal(t, "v1.2.0", formatVersion("v1.2.0"))
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("0.3.1", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	t.Cleanup(func() { versionCmd.SetOut(nil) })

	versionShort = false
	versionCmd.Run(versionCmd, nil)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "dronestatus v0.3.1\n"))
	assert.Contains(t, out, "  commit  abc123\n")
	assert.Contains(t, out, "  built   2026-01-01\n")
	assert.Contains(t, out, "  go      go")

	buf.Reset()
	versionShort = true
	t.Cleanup(func() { versionShort = false })
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "0.3.1\n", buf.String())
	assert.Equal(t, "0.3.1", GetVersion())
}
