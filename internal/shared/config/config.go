package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"subfilter/internal/shared/types"
)

const (
	// EnvConfigPath 指定 ini 配置文件路径。
	EnvConfigPath = "SUBFILTER_CONFIG"
	// EnvGistToken 是访问 snippet 存储的令牌。
	EnvGistToken = "GIST_PAT"
	// EnvGistID 是已存在 gist 的 ID (或完整链接), 设置后执行更新而不是创建。
	EnvGistID = "GIST_LINK"

	DefaultConfigPath = "configs/subfilter.ini"

	OnFailureAbort    = "abort"
	OnFailureFallback = "fallback"

	// TokenPlaceholder 在 source.url 中被提取到的令牌替换。
	TokenPlaceholder = "{token}"

	SinkFile = "file"
	SinkGist = "gist"
)

// ConfigError 表示缺失或非法的配置项, 在任何网络活动之前返回。
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Default 返回与原始脚本行为一致的默认配置。
func Default() *types.Config {
	return &types.Config{
		SourceConf: types.SourceConf{
			Engine:         "http",
			TimeoutSeconds: 30,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36",
			MaxBodyBytes:   32 << 20,
		},
		ExtractConf: types.ExtractConf{
			Enabled:   true,
			PageURL:   "https://github.com/wzdnzd/aggregator/issues/91",
			Strategy:  "regex",
			Anchor:    "clash订阅",
			Kind:      "url",
			Selector:  "a",
			OnFailure: OnFailureAbort,
		},
		FilterConf: types.FilterConf{
			Keywords: []string{"香港", "日本"},
		},
		OutputConf: types.OutputConf{
			Sinks:    []string{SinkFile, SinkGist},
			Filename: "hk.yaml",
		},
		GistConf: types.GistConf{
			APIURL:         "https://api.github.com",
			TimeoutSeconds: 30,
		},
		LogConf: types.LogConf{
			Level:  "info",
			Format: "console",
		},
	}
}

// Path 返回配置文件路径, 优先使用环境变量。
func Path() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath
}

// Load 在默认配置之上叠加 ini 文件 (若存在) 和环境变量中的密钥。
func Load(fileName string) (*types.Config, error) {
	cfg := Default()
	if err := LoadIni(cfg, fileName); err != nil {
		return nil, err
	}
	overrideFromEnv(cfg)
	return cfg, nil
}

// LoadIni 把 ini 文件映射到 cfg 上; 文件不存在时保持 cfg 不变。
func LoadIni(cfg *types.Config, fileName string) error {
	if _, err := os.Stat(fileName); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return fmt.Errorf("failed to load config file '%s': %w", fileName, err)
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map config file '%s': %w", fileName, err)
	}
	cfg.FilterConf.Keywords = trimAll(cfg.FilterConf.Keywords)
	cfg.OutputConf.Sinks = trimAll(cfg.OutputConf.Sinks)
	return nil
}

func overrideFromEnv(cfg *types.Config) {
	overrideFromEnvString(&cfg.GistConf.Token, EnvGistToken)
	overrideFromEnvString(&cfg.GistConf.ID, EnvGistID)
	cfg.GistConf.ID = NormalizeGistID(cfg.GistConf.ID)
}

func overrideFromEnvString(target *string, envName string) {
	if v := strings.TrimSpace(os.Getenv(envName)); v != "" {
		*target = v
	}
}

// NormalizeGistID 接受裸 ID 或完整的 gist 链接, 返回 ID。
func NormalizeGistID(v string) string {
	v = strings.TrimSpace(v)
	if !strings.Contains(v, "/") {
		return v
	}
	if u, err := url.Parse(v); err == nil && u.Path != "" {
		v = u.Path
	}
	return path.Base(strings.TrimRight(v, "/"))
}

// Validate 检查运行所需的配置是否完整。
func Validate(cfg *types.Config) error {
	if len(cfg.FilterConf.Keywords) == 0 {
		return &ConfigError{Field: "filter.keywords", Reason: "at least one keyword is required"}
	}
	for _, k := range cfg.FilterConf.Keywords {
		if k == "" {
			return &ConfigError{Field: "filter.keywords", Reason: "empty keyword"}
		}
	}

	switch cfg.SourceConf.Engine {
	case "", "http", "colly":
	default:
		return &ConfigError{Field: "source.engine", Reason: fmt.Sprintf("unknown engine %q", cfg.SourceConf.Engine)}
	}
	if cfg.SourceConf.TimeoutSeconds <= 0 {
		return &ConfigError{Field: "source.timeout_seconds", Reason: "must be positive"}
	}
	if _, err := url.ParseQuery(cfg.SourceConf.Params); err != nil {
		return &ConfigError{Field: "source.params", Reason: err.Error()}
	}

	if cfg.ExtractConf.Enabled {
		if cfg.ExtractConf.PageURL == "" {
			return &ConfigError{Field: "extract.page_url", Reason: "required when extraction is enabled"}
		}
		switch cfg.ExtractConf.Strategy {
		case "regex", "tag":
		default:
			return &ConfigError{Field: "extract.strategy", Reason: fmt.Sprintf("unknown strategy %q", cfg.ExtractConf.Strategy)}
		}
		switch cfg.ExtractConf.Kind {
		case "", "url":
		case "token":
			if !strings.Contains(cfg.SourceConf.URL, TokenPlaceholder) {
				return &ConfigError{Field: "source.url", Reason: "must contain " + TokenPlaceholder + " when extract.kind=token"}
			}
		default:
			return &ConfigError{Field: "extract.kind", Reason: fmt.Sprintf("unknown kind %q", cfg.ExtractConf.Kind)}
		}
		switch cfg.ExtractConf.OnFailure {
		case "", OnFailureAbort:
		case OnFailureFallback:
			if cfg.ExtractConf.FallbackURL == "" {
				return &ConfigError{Field: "extract.fallback_url", Reason: "required when on_failure=fallback"}
			}
		default:
			return &ConfigError{Field: "extract.on_failure", Reason: fmt.Sprintf("unknown value %q", cfg.ExtractConf.OnFailure)}
		}
	} else if cfg.SourceConf.URL == "" {
		return &ConfigError{Field: "source.url", Reason: "required when extraction is disabled"}
	}

	if len(cfg.OutputConf.Sinks) == 0 {
		return &ConfigError{Field: "output.sinks", Reason: "at least one sink is required"}
	}
	if cfg.OutputConf.Filename == "" {
		return &ConfigError{Field: "output.filename", Reason: "required"}
	}
	for _, s := range cfg.OutputConf.Sinks {
		switch s {
		case SinkFile:
		case SinkGist:
			if cfg.GistConf.Token == "" {
				return &ConfigError{Field: EnvGistToken, Reason: "environment variable is not set"}
			}
		default:
			return &ConfigError{Field: "output.sinks", Reason: fmt.Sprintf("unknown sink %q", s)}
		}
	}
	return nil
}

// OutputPath 返回本地文件的完整路径。未配置目录时使用 ~/Desktop。
func OutputPath(cfg *types.Config) (string, error) {
	dir := cfg.OutputConf.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", &ConfigError{Field: "output.dir", Reason: err.Error()}
		}
		dir = filepath.Join(home, "Desktop")
	}
	return filepath.Join(dir, cfg.OutputConf.Filename), nil
}

// SourceURL 把 [source] params 合并到 rawURL 的查询串中。
func SourceURL(rawURL, params string) (string, error) {
	if params == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid source url %q: %w", rawURL, err)
	}
	extra, err := url.ParseQuery(params)
	if err != nil {
		return "", fmt.Errorf("invalid source params %q: %w", params, err)
	}
	q := u.Query()
	for k, vs := range extra {
		q.Del(k)
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
