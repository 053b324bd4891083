package extractor

import (
	"errors"
	"fmt"
)

// ErrNotFound 表示文本中没有找到目标。这是正常结果, 是否致命由调用方决定。
var ErrNotFound = errors.New("no match found")

// Kind 决定提取目标的形状。
type Kind string

const (
	KindURL   Kind = "url"
	KindToken Kind = "token"
)

// Extractor 从任意文本 (HTML 页面或纯文本) 中提取一个 URL 或令牌。
type Extractor interface {
	// Extract 返回第一个匹配并去掉首尾空白; 没有匹配时返回 ErrNotFound。
	Extract(text string) (string, error)

	// Name 返回提取策略的名称，用于日志记录。
	Name() string
}

// New 按策略名称创建 Extractor: "regex" 或 "tag"。
func New(strategy, anchor string, kind Kind, selector string) (Extractor, error) {
	if kind == "" {
		kind = KindURL
	}
	if kind != KindURL && kind != KindToken {
		return nil, fmt.Errorf("unknown extraction kind %q", kind)
	}
	switch strategy {
	case "regex":
		e, err := NewRegexExtractor(anchor, kind)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "tag":
		return NewTagExtractor(selector, anchor, kind), nil
	}
	return nil, fmt.Errorf("unknown extraction strategy %q", strategy)
}
