package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Point the XDG lookup at an empty directory so no host config leaks in.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, "Wayhost", cfg.Window.Title)
	assert.Equal(t, "dev.wayhost", cfg.Window.AppID)
	assert.Equal(t, "libflutter_engine.so", cfg.Engine.LibraryPath)
	assert.Equal(t, "icudtl.dat", cfg.Engine.ICUDataPath)
	assert.Empty(t, cfg.Engine.Args)
}

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayhost.toml")
	content := `
[window]
width = 1280
height = 720
title = "Demo"

[engine]
library_path = "/opt/flutter/libflutter_engine.so"
args = ["--trace-startup"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, "Demo", cfg.Window.Title)
	assert.Equal(t, "/opt/flutter/libflutter_engine.so", cfg.Engine.LibraryPath)
	assert.Equal(t, []string{"--trace-startup"}, cfg.Engine.Args)
	// Keys the file does not set keep their defaults.
	assert.Equal(t, "dev.wayhost", cfg.Window.AppID)
	assert.Equal(t, "icudtl.dat", cfg.Engine.ICUDataPath)
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err, "an explicitly named config file must exist")
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayhost.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window\nwidth ="), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadXdgConfigDir(t *testing.T) {
	xdg := t.TempDir()
	dir := filepath.Join(xdg, "wayhost")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := `
[window]
title = "From XDG"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wayhost.toml"), []byte(content), 0o644))
	t.Setenv("XDG_CONFIG_HOME", xdg)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "From XDG", cfg.Window.Title)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("WAYHOST_WINDOW_TITLE", "From Env")
	t.Setenv("WAYHOST_ENGINE_ICU_DATA_PATH", "/usr/share/flutter/icudtl.dat")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "From Env", cfg.Window.Title)
	assert.Equal(t, "/usr/share/flutter/icudtl.dat", cfg.Engine.ICUDataPath)
	assert.Equal(t, 800, cfg.Window.Width, "unrelated keys keep defaults")
}
