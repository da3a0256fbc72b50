package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "linux/executable/x86-64/elf64/fasm", c.String())
	require.NoError(t, c.Validate())
	assert.Equal(t, c, Default())
}

func TestValidate(t *testing.T) {
	lib := Default()
	lib.Kind = Library
	assert.Equal(t, "linux/library/x86-64/elf64/fasm", lib.String())
	assert.ErrorIs(t, lib.Validate(), ErrUnsupported)

	odd := Default()
	odd.Arch = Arch(3)
	assert.ErrorIs(t, odd.Validate(), ErrUnsupported)
	assert.Contains(t, odd.String(), "arch(3)")
}

func TestDefaultCacheDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/xdg", "sexpc"), DefaultCacheDir("/tmp/xdg"))

	dir := DefaultCacheDir("")
	assert.Equal(t, "sexpc", filepath.Base(dir))
}

func TestLoadSettingsDefaults(t *testing.T) {
	s := LoadSettings()
	assert.NotEmpty(t, s.CacheDir)
	assert.NotEmpty(t, s.Fasm)
	assert.Positive(t, s.CacheKeep)
}
