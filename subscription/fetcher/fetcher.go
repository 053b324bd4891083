package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/net/html/charset"
)

// Fetcher 接口定义了一次性获取远程文本的行为。
type Fetcher interface {
	// Fetch 对 rawURL 执行一次 GET, 返回 UTF-8 解码后的完整响应体。
	// 只有 200 响应视为成功; 不做任何重试。
	Fetch(ctx context.Context, rawURL string) (string, error)

	// Name 返回抓取器的名称，用于日志记录。
	Name() string
}

// FetchError 表示请求超时、传输失败或非 200 状态码。
type FetchError struct {
	URL        string
	StatusCode int // 0 表示没有收到响应
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: received non-200 status code (%d)", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Options 是所有 Fetcher 实现共用的配置。
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	ProxyURL     string
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 32 << 20

func (o Options) maxBody() int64 {
	if o.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return o.MaxBodyBytes
}

func (o Options) proxy() (*url.URL, error) {
	if o.ProxyURL == "" {
		return nil, nil
	}
	u, err := url.Parse(o.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy url %q: %w", o.ProxyURL, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return u, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeBody 把响应体转换为 UTF-8 文本。
// 只有在 BOM 或 Content-Type 明确声明了其它编码时才转码, 否则按 UTF-8 处理。
func decodeBody(body []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if certain && name != "utf-8" {
		decoded, err := enc.NewDecoder().Bytes(body)
		if err != nil {
			return "", fmt.Errorf("failed to decode %s body: %w", name, err)
		}
		body = decoded
	}
	return string(bytes.TrimPrefix(body, utf8BOM)), nil
}

// New 按引擎名称创建 Fetcher: "http" (默认) 或 "colly"。
func New(engine string, opts Options) (Fetcher, error) {
	switch engine {
	case "", "http":
		f, err := NewHTTPFetcher(opts)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "colly":
		f, err := NewCollyFetcher(opts)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown fetch engine %q", engine)
}
