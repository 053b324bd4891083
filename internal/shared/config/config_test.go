package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"subfilter/internal/shared/types"
)

func validConfig() *types.Config {
	cfg := Default()
	cfg.GistConf.Token = "t"
	return cfg
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvGistToken, "")
	t.Setenv(EnvGistID, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_IniAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subfilter.ini")
	content := `[source]
url = https://sub.example.com/clash
params = target=clash
engine = colly
timeout_seconds = 10

[extract]
enabled = false

[filter]
keywords = HK, JP ,,SG

[output]
sinks = file
filename = out.yaml
dir = /tmp/out

[log]
level = debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv(EnvGistToken, " secret ")
	t.Setenv(EnvGistID, "https://gist.github.com/someone/0123abcd/")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://sub.example.com/clash", cfg.SourceConf.URL)
	assert.Equal(t, "target=clash", cfg.SourceConf.Params)
	assert.Equal(t, "colly", cfg.SourceConf.Engine)
	assert.Equal(t, 10, cfg.SourceConf.TimeoutSeconds)
	assert.False(t, cfg.ExtractConf.Enabled)
	assert.Equal(t, []string{"HK", "JP", "SG"}, cfg.FilterConf.Keywords)
	assert.Equal(t, []string{"file"}, cfg.OutputConf.Sinks)
	assert.Equal(t, "debug", cfg.LogConf.Level)
	assert.Equal(t, "secret", cfg.GistConf.Token)
	assert.Equal(t, "0123abcd", cfg.GistConf.ID)

	// 未出现在文件中的键保持默认值
	assert.Equal(t, Default().SourceConf.UserAgent, cfg.SourceConf.UserAgent)
	assert.Equal(t, "https://api.github.com", cfg.GistConf.APIURL)

	require.NoError(t, Validate(cfg))
	out, err := OutputPath(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/out", "out.yaml"), out)
}

func TestLoad_MalformedIni(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ini")
	require.NoError(t, os.WriteFile(path, []byte("[source\nurl = x\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, DefaultConfigPath, Path())
	t.Setenv(EnvConfigPath, "/etc/subfilter.ini")
	assert.Equal(t, "/etc/subfilter.ini", Path())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
		field  string
	}{
		{"defaults with token", func(c *types.Config) {}, ""},
		{"missing token", func(c *types.Config) { c.GistConf.Token = "" }, EnvGistToken},
		{"file only needs no token", func(c *types.Config) {
			c.GistConf.Token = ""
			c.OutputConf.Sinks = []string{SinkFile}
		}, ""},
		{"no keywords", func(c *types.Config) { c.FilterConf.Keywords = nil }, "filter.keywords"},
		{"empty keyword", func(c *types.Config) { c.FilterConf.Keywords = []string{"HK", ""} }, "filter.keywords"},
		{"no source", func(c *types.Config) { c.ExtractConf.Enabled = false }, "source.url"},
		{"unknown engine", func(c *types.Config) { c.SourceConf.Engine = "curl" }, "source.engine"},
		{"zero timeout", func(c *types.Config) { c.SourceConf.TimeoutSeconds = 0 }, "source.timeout_seconds"},
		{"bad params", func(c *types.Config) { c.SourceConf.Params = "a=%zz" }, "source.params"},
		{"unknown strategy", func(c *types.Config) { c.ExtractConf.Strategy = "xpath" }, "extract.strategy"},
		{"token without template", func(c *types.Config) { c.ExtractConf.Kind = "token" }, "source.url"},
		{"token with template", func(c *types.Config) {
			c.ExtractConf.Kind = "token"
			c.SourceConf.URL = "https://sub.example.com/api?token={token}"
		}, ""},
		{"fallback without url", func(c *types.Config) { c.ExtractConf.OnFailure = OnFailureFallback }, "extract.fallback_url"},
		{"fallback with url", func(c *types.Config) {
			c.ExtractConf.OnFailure = OnFailureFallback
			c.ExtractConf.FallbackURL = "https://sub.example.com/default"
		}, ""},
		{"unknown on_failure", func(c *types.Config) { c.ExtractConf.OnFailure = "retry" }, "extract.on_failure"},
		{"no sinks", func(c *types.Config) { c.OutputConf.Sinks = nil }, "output.sinks"},
		{"unknown sink", func(c *types.Config) { c.OutputConf.Sinks = []string{"s3"} }, "output.sinks"},
		{"no filename", func(c *types.Config) { c.OutputConf.Filename = "" }, "output.filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ce *ConfigError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestNormalizeGistID(t *testing.T) {
	assert.Equal(t, "abc", NormalizeGistID(" abc "))
	assert.Equal(t, "abc", NormalizeGistID("https://gist.github.com/user/abc"))
	assert.Equal(t, "abc", NormalizeGistID("https://gist.github.com/user/abc/"))
	assert.Equal(t, "", NormalizeGistID(""))
}

func TestSourceURL(t *testing.T) {
	got, err := SourceURL("https://sub.example.com/api?token=x", "")
	require.NoError(t, err)
	assert.Equal(t, "https://sub.example.com/api?token=x", got)

	got, err = SourceURL("https://sub.example.com/api?token=x&target=v2ray", "target=clash&list=1")
	require.NoError(t, err)
	assert.Equal(t, "https://sub.example.com/api?list=1&target=clash&token=x", got)
}

func TestOutputPath_DefaultsToDesktop(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfg := validConfig()
	got, err := OutputPath(cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "Desktop", "hk.yaml"), got)
}
