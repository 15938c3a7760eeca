package config

import (
	"testing"

	"github.com/fgeck/backuprat/internal/services/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDump_ReloadsToSameConfig(t *testing.T) {
	original := `
threads = 3

[[target]]
tag = "docs"
path = "/home/user/Documents"
target_path = "/mnt/backup"
ignore_files = ["Thumbs.db", "r#\\.tmp$"]
ignore_folders = ["r#^build"]
keep_num = 4
threads = 2

[wol]
mac_address = "AA:BB:CC:DD:EE:FF"
poll_url = "http://nas.local:5000"
`
	cfg, err := NewParser().LoadReader(original)
	require.NoError(t, err)

	data, err := Dump(cfg)
	require.NoError(t, err)

	reloaded, err := NewParser().LoadReader(string(data))
	require.NoError(t, err)

	assert.Equal(t, cfg.Global, reloaded.Global)
	assert.Equal(t, cfg.WOL, reloaded.WOL)
	require.Len(t, reloaded.Targets, 1)

	got := reloaded.Targets[0]
	want := cfg.Targets[0]
	assert.Equal(t, want.Tag, got.Tag)
	assert.Equal(t, want.SourcePath, got.SourcePath)
	assert.Equal(t, want.KeepNum, got.KeepNum)
	assert.Equal(t, *want.ThreadCount, *got.ThreadCount)
	assert.Nil(t, got.MultiThreaded)
	require.Len(t, got.IgnoreFiles, 2)
	assert.Equal(t, `r#\.tmp$`, got.IgnoreFiles[1].String())
	assert.True(t, matcher.ForTarget(got).IgnoreFolder("build"))
}

func TestDump_FillsDefaults(t *testing.T) {
	cfg, err := NewParser().LoadReader(`
[[target]]
path = "/data"
target_path = "/mnt/backup"
`)
	require.NoError(t, err)

	data, err := Dump(cfg)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "multi_threaded = true")
	assert.Contains(t, text, "keep_num = 1")
	assert.Contains(t, text, "[[target]]")
	assert.NotContains(t, text, "[wol]")
}

func TestDump_RedactsSecrets(t *testing.T) {
	cfg, err := NewParser().LoadReader(`
[telegram]
bot_token = "123456:SECRET"
chat_id = "-100123"
`)
	require.NoError(t, err)

	data, err := Dump(cfg)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "SECRET")
	assert.Contains(t, string(data), "<redacted>")
	assert.Contains(t, string(data), "-100123")
}

func TestDump_Nil(t *testing.T) {
	_, err := Dump(nil)

	assert.Error(t, err)
}
