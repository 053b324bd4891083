package types

// SourceConf 描述订阅文档的来源以及抓取行为。
type SourceConf struct {
	URL            string `ini:"url"`             // 订阅地址; 启用提取时作为默认值
	Params         string `ini:"params"`          // 追加到订阅地址的查询参数, e.g. "target=clash"
	Engine         string `ini:"engine"`          // "http" (默认) 或 "colly"
	TimeoutSeconds int    `ini:"timeout_seconds"` // 单次请求超时
	UserAgent      string `ini:"user_agent"`
	ProxyURL       string `ini:"proxy_url"` // 可选的前置代理, http:// 或 socks5://
	MaxBodyBytes   int64  `ini:"max_body_bytes"`
}

// ExtractConf 控制是否先从一个页面中提取订阅地址。
type ExtractConf struct {
	Enabled     bool   `ini:"enabled"`
	PageURL     string `ini:"page_url"`
	Strategy    string `ini:"strategy"` // "regex" 或 "tag"
	Anchor      string `ini:"anchor"`   // 锚定短语, e.g. "clash订阅"
	Kind        string `ini:"kind"`     // "url" 或 "token"
	Selector    string `ini:"selector"` // tag 策略使用的 CSS 选择器
	OnFailure   string `ini:"on_failure"`
	FallbackURL string `ini:"fallback_url"`
}

// FilterConf 定义保留节点的关键字。
type FilterConf struct {
	Keywords []string `ini:"keywords" delim:","`
}

// OutputConf 定义结果的去向。
type OutputConf struct {
	Sinks    []string `ini:"sinks" delim:","` // "file", "gist"
	Filename string   `ini:"filename"`
	Dir      string   `ini:"dir"` // 为空时使用桌面目录
}

// GistConf 是远程 snippet 存储的配置。Token 和 ID 只从环境变量读取。
type GistConf struct {
	APIURL         string `ini:"api_url"`
	TimeoutSeconds int    `ini:"timeout_seconds"`
	Token          string `ini:"-"`
	ID             string `ini:"-"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level  string `ini:"level"`
	Format string `ini:"format"` // "console" (默认) 或 "json"
}

// Config 是 subfilter 的统一配置结构体。
type Config struct {
	SourceConf  `ini:"source"`
	ExtractConf `ini:"extract"`
	FilterConf  `ini:"filter"`
	OutputConf  `ini:"output"`
	GistConf    `ini:"gist"`
	LogConf     `ini:"log"`
}
