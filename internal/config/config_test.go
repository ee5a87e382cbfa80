package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddr(t *testing.T) {
	c := &Config{Host: "127.0.0.1", Port: 6380}
	require.Equal(t, "127.0.0.1:6380", c.Addr())
}

func TestApplyFileOverlaysNonZeroFileFieldsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "redisd.toml")
	contents := `
host = "10.0.0.1"
dir = "/data"
master_host = "10.0.0.2"
master_port = 6380
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg := &Config{Host: "0.0.0.0", Port: 6379, DBFilename: "dump.rdb"}
	require.NoError(t, ApplyFile(cfg, path))

	require.Equal(t, "10.0.0.1", cfg.Host)
	require.Equal(t, "/data", cfg.Dir)
	require.Equal(t, "dump.rdb", cfg.DBFilename, "untouched by the file, keeps its flag value")
	require.Equal(t, "10.0.0.2", cfg.MasterHost)
	require.Equal(t, 6380, cfg.MasterPort)
	require.True(t, cfg.IsReplica)
}

func TestApplyFileMissingFileErrors(t *testing.T) {
	cfg := &Config{}
	err := ApplyFile(cfg, "/nonexistent/path.toml")
	require.Error(t, err)
}
