package L

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	SetOutput(out, errOut)
	prevLevel := level
	prevColorMode := colorMode
	assert.NoError(t, SetColorMode(COLOR_MODE_NEVER))
	t.Cleanup(func() {
		SetOutput(os.Stdout, os.Stderr)
		level = prevLevel
		_ = SetColorMode(prevColorMode)
	})
	return out, errOut
}

func TestSetLevelFromString(t *testing.T) {
	prev := level
	defer func() { level = prev }()

	for _, s := range []string{"debug", "INFO", "warn", "error", "panic", "silent"} {
		assert.NoError(t, SetLevelFromString(s))
		assert.Equal(t, strings.ToLower(s), GetLogLevel().String())
	}
	assert.Error(t, SetLevelFromString("verbose"))
}

func TestLevelFiltering(t *testing.T) {
	out, errOut := captureOutput(t)

	assert.NoError(t, SetLevel(WARN))
	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warning")
	Error("shown error")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), warnPrefix+"shown warning")
	assert.Contains(t, errOut.String(), errorPrefix+"shown error")
}

func TestMultilinePrefix(t *testing.T) {
	out, _ := captureOutput(t)
	assert.NoError(t, SetLevel(INFO))

	Info("first\nsecond")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, infoPrefix))
	}
}

func TestSilentSuppressesPrint(t *testing.T) {
	out, _ := captureOutput(t)
	assert.NoError(t, SetLevel(SILENT))

	n, err := Printf("%d files\n", 3)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, out.String())

	assert.NoError(t, SetLevel(INFO))
	_, err = Printf("%d files\n", 3)
	assert.NoError(t, err)
	assert.Equal(t, "3 files\n", out.String())
}

func TestFooterNotPrintedWithoutTerminal(t *testing.T) {
	out, _ := captureOutput(t)
	assert.NoError(t, SetLevel(INFO))

	Footer(INFO, "queue: 3")
	Info("message")
	assert.NotContains(t, out.String(), "queue: 3")
	Footer(INFO, "")
}

func TestHumanReadableBytes(t *testing.T) {
	assert.Equal(t, "0 B", HumanReadableBytes(0, 2))
	assert.Equal(t, "512.00B", HumanReadableBytes(512, 2))
	assert.Equal(t, "1.5KB", HumanReadableBytes(1536, 1))
	assert.Equal(t, "1.00MB", HumanReadableBytes(1024*1024, 0))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10, TRUNC_RIGHT))
	assert.Equal(t, "abcd...", TruncateString("abcdefghij", 7, TRUNC_RIGHT))
	assert.Equal(t, "...ghij", TruncateString("abcdefghij", 7, TRUNC_LEFT))
	assert.Equal(t, "ab...ij", TruncateString("abcdefghij", 7, TRUNC_CENTER))
	assert.Equal(t, "", TruncateString("abc", -1, TRUNC_RIGHT))
}

func TestHumanReadableTime(t *testing.T) {
	assert.Equal(t, "0s", HumanReadableTime(0))
	assert.Equal(t, "250ms", HumanReadableTime(250))
	assert.Equal(t, "1m 5s", HumanReadableTime(65_000))
	assert.Equal(t, "1h 50s", HumanReadableTime(3_650_000))
	assert.Equal(t, "-2s", HumanReadableTime(-2000))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("█", 5)+strings.Repeat("░", 5), ProgressBar(50, 10))
	assert.Equal(t, strings.Repeat("█", 10), ProgressBar(150, 10))
	assert.Equal(t, 24, len([]rune(ProgressBar(0, 0))))
}
