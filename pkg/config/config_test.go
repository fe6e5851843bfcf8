package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/knadh/koanf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "1", want: 1},
		{in: "1023", want: 1023},
		{in: "1k", want: 1024},
		{in: "1K", want: 1024},
		{in: "2k", want: 2048},
		{in: "1023k", want: 1023 * 1024},
		{in: "1m", want: 1 << 20},
		{in: "1g", want: 1 << 30},
		{in: "1t", want: 1 << 40},
		{in: "1p", want: 1 << 50},
		{in: "1KiB", want: 1024},
		{in: "1kB", want: 1000},
		{in: "", wantErr: true},
		{in: "1j", wantErr: true},
		{in: "k", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(koanf.New(Delimiter), filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.False(t, cfg.Matching.SameName)
	assert.Equal(t, "1", cfg.Matching.MinSize)
	assert.Equal(t, "", cfg.Matching.MaxSize)
	assert.Equal(t, 1, cfg.Matching.SearchThreshold)
	assert.True(t, cfg.Notifications.SkipEmptyRun)
	assert.Empty(t, cfg.Filter.Exclude)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
matching:
  same_name: true
  min_size: 4k
  search_threshold: -1
filter:
  exclude:
    - "\\.git$"
    - "^cache"
linking:
  rate: 50
notifications:
  service:
    discord: https://discord.example/webhook
`), 0o644))

	t.Setenv("HARDLINKABLE__MATCHING__IGNORE_TIME", "true")

	cfg, err := Load(koanf.New(Delimiter), path)
	require.NoError(t, err)

	assert.True(t, cfg.Matching.SameName)
	assert.True(t, cfg.Matching.IgnoreTime)
	assert.Equal(t, "4k", cfg.Matching.MinSize)
	assert.Equal(t, -1, cfg.Matching.SearchThreshold)
	assert.Equal(t, []string{`\.git$`, "^cache"}, cfg.Filter.Exclude)
	assert.Equal(t, 50, cfg.Linking.Rate)
	assert.Equal(t, "https://discord.example/webhook", cfg.Notifications.Service.Discord)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "matching.same_name", envKey("HARDLINKABLE__MATCHING__SAME_NAME"))
	assert.Equal(t, "linking.rate", envKey("HARDLINKABLE__LINKING__RATE"))
}
