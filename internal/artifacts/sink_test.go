package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSaveHTML(t *testing.T) {
	dir := t.TempDir()
	s := NewSink(dir, zaptest.NewLogger(t))

	s.SaveHTML("no_json", "<html><body>snapshot</body></html>")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	name := entries[0].Name()
	assert.True(t, strings.HasPrefix(name, "no_json_"))
	assert.True(t, strings.HasSuffix(name, ".html"))

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), "snapshot")
}

func TestSaveJSON(t *testing.T) {
	dir := t.TempDir()
	s := NewSink(dir, zaptest.NewLogger(t))

	s.SaveJSON("no_candidates_input", []map[string]interface{}{
		{"tag": "textarea", "visible": false},
	})

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"textarea"`)
}

func TestSinkCreatesDirectoryOnDemand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "debug")
	s := NewSink(dir, zaptest.NewLogger(t))

	s.SaveHTML("snapshot", "<html></html>")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNilSinkDiscardsEverything(t *testing.T) {
	var s *Sink
	// Must not panic.
	s.SaveHTML("tag", "<html></html>")
	s.SaveJSON("tag", map[string]string{"k": "v"})
}

func TestRunIDDisambiguatesFiles(t *testing.T) {
	dir := t.TempDir()
	a := NewSink(dir, zaptest.NewLogger(t))
	b := NewSink(dir, zaptest.NewLogger(t))

	a.SaveHTML("same_tag", "<html>a</html>")
	b.SaveHTML("same_tag", "<html>b</html>")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
