package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gocolly/colly/v2"
	"subfilter/internal/shared/logger"
)

// CollyFetcher 使用 colly 实现 Fetcher。
// 每次 Fetch 都创建新的 collector, 因此同一 URL 可以被重复获取。
type CollyFetcher struct {
	opts Options
}

// NewCollyFetcher 创建一个新的 CollyFetcher 实例。
func NewCollyFetcher(opts Options) (*CollyFetcher, error) {
	if _, err := opts.proxy(); err != nil {
		return nil, err
	}
	return &CollyFetcher{opts: opts}, nil
}

func (f *CollyFetcher) Name() string {
	return "colly"
}

func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	l := logger.WithComponent("Subscription/Fetcher")
	l.Debug().Str("url", rawURL).Str("engine", f.Name()).Msg("Fetching...")

	maxBody := f.opts.maxBody()
	// colly 在 MaxBodySize 处静默截断, 多读一个字节才能判断是否超限。
	options := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.MaxBodySize(int(maxBody + 1)),
	}
	if f.opts.UserAgent != "" {
		options = append(options, colly.UserAgent(f.opts.UserAgent))
	}
	c := colly.NewCollector(options...)
	if f.opts.Timeout > 0 {
		c.SetRequestTimeout(f.opts.Timeout)
	}
	if proxyURL, _ := f.opts.proxy(); proxyURL != nil {
		if err := c.SetProxy(proxyURL.String()); err != nil {
			return "", &FetchError{URL: rawURL, Err: fmt.Errorf("failed to set proxy: %w", err)}
		}
	}

	var (
		text     string
		fetchErr error
	)

	c.OnResponse(func(r *colly.Response) {
		if r.StatusCode != http.StatusOK {
			fetchErr = &FetchError{URL: rawURL, StatusCode: r.StatusCode}
			return
		}
		if int64(len(r.Body)) > maxBody {
			fetchErr = &FetchError{URL: rawURL, Err: fmt.Errorf("body exceeds %d bytes", maxBody)}
			return
		}
		// colly 已按 Content-Type 声明的字符集把响应体转换为 UTF-8。
		text = string(bytes.TrimPrefix(r.Body, utf8BOM))
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &FetchError{URL: rawURL, StatusCode: r.StatusCode, Err: err}
			return
		}
		fetchErr = &FetchError{URL: rawURL, Err: err}
	})

	if err := c.Visit(rawURL); err != nil && fetchErr == nil {
		fetchErr = &FetchError{URL: rawURL, Err: err}
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if text == "" && ctx.Err() != nil {
		return "", &FetchError{URL: rawURL, Err: ctx.Err()}
	}

	l.Debug().Str("url", rawURL).Int("bytes", len(text)).Msg("Fetch finished.")
	return text, nil
}
