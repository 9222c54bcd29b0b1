package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, uint32(256), cfg.Engine.PageLength)
	assert.Equal(t, uint32(10240), cfg.Engine.BlockSize)
	assert.Equal(t, 5*time.Second, cfg.Engine.Timeout())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "hexlens.toml")

	cfg := DefaultConfig()
	cfg.Engine.BlockSize = 4096
	cfg.Engine.IOTimeout = "250ms"
	cfg.Log.Enabled = true
	cfg.Theme.CursorBackground = "#123456"
	require.NoError(t, cfg.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, 250*time.Millisecond, loaded.Engine.Timeout())
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hexlens.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine]\nblock_size = 2048\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(2048), cfg.Engine.BlockSize)
	assert.Equal(t, uint32(256), cfg.Engine.PageLength)
	assert.Equal(t, "#000000", cfg.Theme.Background)
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hexlens.toml")

	require.NoError(t, os.WriteFile(path, []byte("[engine]\npage_length = 100\n"), 0644))
	_, err := LoadFile(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[engine]\nio_timeout = \"soon\"\n"), 0644))
	_, err = LoadFile(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestTimeoutFallback(t *testing.T) {
	assert.Equal(t, 5*time.Second, Engine{IOTimeout: "-1s"}.Timeout())
	assert.Equal(t, 5*time.Second, Engine{}.Timeout())
}
