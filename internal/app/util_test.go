package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTruthy(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "1", "t", "T", "yes", "Yes", "y", " y "} {
		assert.True(t, IsTruthy(s), s)
	}
	for _, s := range []string{"", "false", "0", "no", "n", "on", "2"} {
		assert.False(t, IsTruthy(s), s)
	}
}

func TestKey32(t *testing.T) {
	a, err := Key32("secret", KeyCSRF)
	require.NoError(t, err)
	b, err := Key32("secret", KeyCSRF)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.Equal(t, a, b)

	other, err := Key32("other", KeyCSRF)
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	r1, err := Key32("", KeyCSRF)
	require.NoError(t, err)
	r2, err := Key32("", KeyCSRF)
	require.NoError(t, err)
	assert.Len(t, r1, 32)
	assert.NotEqual(t, r1, r2)
}

func TestKey32SeparatesPurposes(t *testing.T) {
	csrfKey, err := Key32("s3cret", KeyCSRF)
	require.NoError(t, err)
	sessionKey, err := Key32("s3cret", KeySession)
	require.NoError(t, err)
	assert.Len(t, sessionKey, 32)
	assert.NotEqual(t, csrfKey, sessionKey)
}

func TestAtomicWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "qrcode.png")
	require.NoError(t, AtomicWriteFile(path, 0644, []byte("one")))
	require.NoError(t, AtomicWriteFile(path, 0644, []byte("two")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(b))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "***", Mask("short"))
	assert.Equal(t, "ht********om", Mask("https://www.example.com"))
	assert.Equal(t, "he***lo", Mask("hel-llo"))
}

func TestColorSkipsNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, "plain", Color(&buf, "plain", Green))
	assert.False(t, IsTerminal(&buf))
}
