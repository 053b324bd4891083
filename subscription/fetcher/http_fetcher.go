package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"subfilter/internal/shared/logger"
)

// HTTPFetcher 使用 net/http 实现 Fetcher。
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// NewHTTPFetcher 创建一个新的 HTTPFetcher。配置了 ProxyURL 时所有请求都经由该代理。
func NewHTTPFetcher(opts Options) (*HTTPFetcher, error) {
	l := logger.WithComponent("Subscription/Fetcher")
	transport := http.DefaultTransport.(*http.Transport).Clone()

	proxyURL, err := opts.proxy()
	if err != nil {
		return nil, err
	}
	if proxyURL != nil {
		transport.Proxy = http.ProxyURL(proxyURL)
		l.Info().Str("proxy_url", proxyURL.Redacted()).Msg("Fetcher will use a forward proxy.")
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		userAgent: opts.UserAgent,
		maxBody:   opts.maxBody(),
	}, nil
}

func (f *HTTPFetcher) Name() string {
	return "http"
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	l := logger.WithComponent("Subscription/Fetcher")
	l.Debug().Str("url", rawURL).Str("engine", f.Name()).Msg("Fetching...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		return "", &FetchError{URL: rawURL, Err: fmt.Errorf("body exceeds %d bytes", f.maxBody)}
	}

	text, err := decodeBody(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}

	l.Debug().Str("url", rawURL).Int("bytes", len(body)).Msg("Fetch finished.")
	return text, nil
}
