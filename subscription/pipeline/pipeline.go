package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"subfilter/internal/shared/config"
	"subfilter/internal/shared/types"
	"subfilter/subscription/extractor"
	"subfilter/subscription/fetcher"
	"subfilter/subscription/filter"
	"subfilter/subscription/parser"
	"subfilter/subscription/sink"
)

// ErrSourceUnavailable 表示无法从页面得到订阅地址, 且未配置回退。
var ErrSourceUnavailable = errors.New("subscription url is unavailable")

// Pipeline 按 "提取 -> 获取 -> 解析 -> 过滤 -> 持久化" 的顺序执行一次完整运行。
// 每一步完成后才开始下一步; 任何错误都会终止本次运行。
type Pipeline struct {
	Fetcher fetcher.Fetcher

	// Extractor 为 nil 时直接使用 SourceURL。
	Extractor extractor.Extractor
	PageURL   string
	Kind      extractor.Kind
	OnFailure string
	Fallback  string

	// SourceURL 是订阅地址, Kind 为 token 时是包含 {token} 的模板。
	SourceURL string
	Params    string

	Keywords []string
	Sinks    []sink.Sink
}

// Result 汇总一次成功运行的结果。
type Result struct {
	RunID     string
	SourceURL string
	Stats     filter.Stats
	Locations []string
}

// New 根据配置组装 Pipeline。cfg 应已通过 config.Validate。
func New(cfg *types.Config) (*Pipeline, error) {
	f, err := fetcher.New(cfg.SourceConf.Engine, fetcher.Options{
		Timeout:      time.Duration(cfg.SourceConf.TimeoutSeconds) * time.Second,
		UserAgent:    cfg.SourceConf.UserAgent,
		ProxyURL:     cfg.SourceConf.ProxyURL,
		MaxBodyBytes: cfg.SourceConf.MaxBodyBytes,
	})
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Fetcher:   f,
		SourceURL: cfg.SourceConf.URL,
		Params:    cfg.SourceConf.Params,
		Keywords:  cfg.FilterConf.Keywords,
	}

	if cfg.ExtractConf.Enabled {
		kind := extractor.Kind(cfg.ExtractConf.Kind)
		ex, err := extractor.New(cfg.ExtractConf.Strategy, cfg.ExtractConf.Anchor, kind, cfg.ExtractConf.Selector)
		if err != nil {
			return nil, err
		}
		p.Extractor = ex
		p.PageURL = cfg.ExtractConf.PageURL
		p.Kind = kind
		p.OnFailure = cfg.ExtractConf.OnFailure
		p.Fallback = cfg.ExtractConf.FallbackURL
	}

	for _, name := range cfg.OutputConf.Sinks {
		switch name {
		case config.SinkFile:
			path, err := config.OutputPath(cfg)
			if err != nil {
				return nil, err
			}
			p.Sinks = append(p.Sinks, sink.NewFileSink(path))
		case config.SinkGist:
			p.Sinks = append(p.Sinks, sink.NewGistSink(sink.GistOptions{
				APIURL:   cfg.GistConf.APIURL,
				Token:    cfg.GistConf.Token,
				GistID:   cfg.GistConf.ID,
				Filename: cfg.OutputConf.Filename,
				Timeout:  time.Duration(cfg.GistConf.TimeoutSeconds) * time.Second,
			}))
		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}
	return p, nil
}

// Run 执行一次完整的运行。结果只在完整生成后才交给 Sinks。
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	l := logFor(runID)
	res := &Result{RunID: runID}

	sourceURL, err := p.resolveSource(ctx, runID)
	if err != nil {
		return nil, err
	}
	if sourceURL, err = config.SourceURL(sourceURL, p.Params); err != nil {
		return nil, err
	}
	res.SourceURL = sourceURL

	l.Info().Str("url", sourceURL).Msg("Downloading subscription document...")
	text, err := p.Fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return nil, err
	}
	l.Info().Int("bytes", len(text)).Msg("Download finished.")

	doc, err := parser.Parse(text)
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			l.Error().Str("snippet", pe.Snippet).Msg("Document snippet (first 500 characters).")
		}
		return nil, err
	}

	filtered, stats, err := filter.Filter(doc, p.Keywords)
	if err != nil {
		return nil, err
	}
	res.Stats = stats

	content, err := filtered.Encode()
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(string(content)); err != nil {
		return nil, &filter.FormatError{Reason: fmt.Sprintf("filtered document does not parse: %v", err)}
	}

	for _, s := range p.Sinks {
		loc, err := s.Persist(ctx, content)
		if err != nil {
			if len(res.Locations) > 0 {
				l.Warn().Err(err).Str("sink", s.Name()).Strs("saved", res.Locations).Msg("Sink failed after earlier sinks were written.")
			}
			return nil, err
		}
		l.Info().Str("sink", s.Name()).Str("location", loc).Int("kept", stats.Kept).Msg("Saved filtered document.")
		res.Locations = append(res.Locations, loc)
	}
	return res, nil
}

// resolveSource 返回需要下载的订阅地址。
// 页面获取失败或没有匹配时, 按 OnFailure 决定中止还是使用回退地址。
func (p *Pipeline) resolveSource(ctx context.Context, runID string) (string, error) {
	if p.Extractor == nil {
		return p.SourceURL, nil
	}
	l := logFor(runID)
	l.Info().Str("page", p.PageURL).Str("strategy", p.Extractor.Name()).Msg("Extracting subscription url...")

	found, err := p.extract(ctx)
	if err == nil {
		if p.Kind == extractor.KindToken {
			found = strings.ReplaceAll(p.SourceURL, config.TokenPlaceholder, url.QueryEscape(found))
		}
		l.Info().Str("url", found).Msg("Subscription url extracted.")
		return found, nil
	}

	if p.OnFailure == config.OnFailureFallback && p.Fallback != "" {
		l.Warn().Err(err).Str("fallback", p.Fallback).Msg("Extraction failed, using fallback url.")
		return p.Fallback, nil
	}
	if errors.Is(err, extractor.ErrNotFound) {
		return "", fmt.Errorf("%w: nothing matched on %s", ErrSourceUnavailable, p.PageURL)
	}
	return "", err
}

func (p *Pipeline) extract(ctx context.Context) (string, error) {
	page, err := p.Fetcher.Fetch(ctx, p.PageURL)
	if err != nil {
		return "", err
	}
	return p.Extractor.Extract(page)
}
