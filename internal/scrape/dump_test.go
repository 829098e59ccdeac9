package scrape

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDumperWritesTimestampedFile(t *testing.T) {
	dir := t.TempDir()
	d := NewDumper(dir, 1024, true, zap.NewNop())

	path := d.Dump([]byte("<html>broken</html>"), "anchor_not_found")
	require.NotEmpty(t, path)
	require.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "<html>broken</html>", string(data))
}

func TestDumperDisabled(t *testing.T) {
	d := NewDumper(t.TempDir(), 1024, false, zap.NewNop())
	require.Empty(t, d.Dump([]byte("x"), "reason"))
}

func TestDumperTruncatesOversizedBody(t *testing.T) {
	dir := t.TempDir()
	d := NewDumper(dir, 4, true, zap.NewNop())

	path := d.Dump([]byte("abcdefgh"), "oversized")
	require.NotEmpty(t, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abcd", string(data))
}

func TestDumperEmptyBody(t *testing.T) {
	d := NewDumper(t.TempDir(), 1024, true, zap.NewNop())
	require.Empty(t, d.Dump(nil, "reason"))
}
