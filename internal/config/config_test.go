package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsh/internal/jobs"
)

func writeRC(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), Name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "gsh> ", cfg.Prompt)
	assert.Equal(t, jobs.DefaultCapacity, cfg.MaxJobs)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeRC(t, "prompt: \"$ \"\nmax_jobs: 16\nhistory: /tmp/hist\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "$ ", cfg.Prompt)
	assert.Equal(t, 16, cfg.MaxJobs)
	assert.Equal(t, "/tmp/hist", cfg.History)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeRC(t, "prompt: \"% \"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "% ", cfg.Prompt)
	assert.Equal(t, jobs.DefaultCapacity, cfg.MaxJobs)
}

func TestLoadRejectsBadMaxJobs(t *testing.T) {
	for _, contents := range []string{"max_jobs: 0\n", "max_jobs: 100000\n"} {
		path := writeRC(t, contents)
		_, err := Load(path)
		assert.Error(t, err, contents)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeRC(t, "prompt: [unclosed\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), Name))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
