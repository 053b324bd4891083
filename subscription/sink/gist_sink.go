package sink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"subfilter/internal/shared/logger"
)

// GistSink 把结果保存到 GitHub Gist (或兼容的 snippet 服务)。
// 设置了 gistID 时更新已有 gist, 否则创建一个新的私有 gist。
type GistSink struct {
	client   *resty.Client
	filename string
	gistID   string
}

type gistFile struct {
	Content string `json:"content"`
}

type gistRequest struct {
	Files  map[string]gistFile `json:"files"`
	Public bool                `json:"public"`
}

type gistResponse struct {
	ID      string `json:"id"`
	HTMLURL string `json:"html_url"`
}

// GistOptions 是 GistSink 的配置。
type GistOptions struct {
	APIURL   string
	Token    string
	GistID   string
	Filename string
	Timeout  time.Duration
}

// NewGistSink 创建一个新的 GistSink 实例。
func NewGistSink(opts GistOptions) *GistSink {
	client := resty.New()
	client.SetBaseURL(opts.APIURL)
	client.SetAuthToken(opts.Token)
	client.SetHeader("Accept", "application/vnd.github.v3+json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &GistSink{
		client:   client,
		filename: opts.Filename,
		gistID:   opts.GistID,
	}
}

func (s *GistSink) Name() string {
	return "gist"
}

func (s *GistSink) Persist(ctx context.Context, content []byte) (string, error) {
	l := logger.WithComponent("Subscription/Sink")

	req := s.client.R().
		SetContext(ctx).
		SetBody(gistRequest{
			Files:  map[string]gistFile{s.filename: {Content: string(content)}},
			Public: false,
		}).
		SetResult(&gistResponse{})

	var (
		res *resty.Response
		err error
		dst string
	)
	if s.gistID != "" {
		dst = "/gists/" + url.PathEscape(s.gistID)
		l.Info().Str("gist_id", s.gistID).Msg("Updating existing gist...")
		res, err = req.Patch(dst)
	} else {
		dst = "/gists"
		l.Info().Msg("Creating new gist...")
		res, err = req.Post(dst)
	}
	if err != nil {
		return "", &PersistError{Destination: dst, Err: err}
	}

	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusCreated {
		return "", &PersistError{Destination: dst, StatusCode: res.StatusCode(), Body: res.String()}
	}

	result, ok := res.Result().(*gistResponse)
	if !ok || result.HTMLURL == "" {
		return "", &PersistError{Destination: dst, Err: fmt.Errorf("response has no html_url: %s", res.String())}
	}

	l.Info().Str("gist_id", result.ID).Str("url", result.HTMLURL).Msg("Successfully saved document to gist.")
	return result.HTMLURL, nil
}
