package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoad_MergesDefaults 测试缺失字段保留默认值
func TestLoad_MergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  base_url: https://hft.example.org
  ws_url: wss://hft.example.org/ws
book:
  instrument: ETHUSD
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://hft.example.org", cfg.API.BaseURL)
	require.Equal(t, "ETHUSD", cfg.Book.Instrument)
	// 未配置的字段保留默认
	require.Equal(t, 50, cfg.Book.LevelsCount)
	require.Equal(t, "info", cfg.Log.Level)
}

// TestLoad_MissingFile 测试配置文件不存在
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

// TestValidate 测试配置校验
func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.API.BaseURL = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Book.LevelsCount = 0
	require.NoError(t, cfg.Validate())
	require.Equal(t, 50, cfg.Book.LevelsCount)
}
