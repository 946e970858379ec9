package asins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asins.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileFiltersAndDeduplicates(t *testing.T) {
	path := writeFixture(t, "B09DT48V16\n\n  b07xj8c8f5  \nB09DT48V16\nnot-an-asin\nB0TOOSHORT7\nB08N5WRWNW\n")

	got, err := LoadFile(path)
	require.NoError(t, err)

	// Lowercase input is normalized, blanks/dupes/malformed dropped, order kept.
	assert.Equal(t, []string{"B09DT48V16", "B07XJ8C8F5", "B08N5WRWNW"}, got)
}

func TestLoadFileEmpty(t *testing.T) {
	path := writeFixture(t, "\n\n")

	got, err := LoadFile(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("B09DT48V16"))
	assert.True(t, Valid("0136091814"))
	assert.False(t, Valid("B09DT48V1"))    // too short
	assert.False(t, Valid("B09DT48V166"))  // too long
	assert.False(t, Valid("b09dt48v16"))   // lowercase
	assert.False(t, Valid("B09DT48V1!"))   // punctuation
}
