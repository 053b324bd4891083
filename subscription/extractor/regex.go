package extractor

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

const (
	// urlPattern 不包含空白、引号、尖括号以及常见的中文标点, 以便在 HTML 中截断到属性或标签边界。
	urlPattern   = `(https?://[^\s"'<>()\[\]{}，。；！]+)`
	tokenPattern = `([A-Za-z0-9_\-]{16,})`
)

// RegexExtractor 查找锚定短语之后的第一个 URL 或令牌。
// 匹配不区分大小写, 并且可以跨行。
type RegexExtractor struct {
	re   *regexp.Regexp
	kind Kind
}

// NewRegexExtractor 创建一个以 anchor 为锚点的 RegexExtractor。anchor 按字面量匹配。
func NewRegexExtractor(anchor string, kind Kind) (*RegexExtractor, error) {
	capture := urlPattern
	if kind == KindToken {
		capture = tokenPattern
	}
	expr := `(?is)` + regexp.QuoteMeta(anchor) + `.*?` + capture
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to compile extraction pattern: %w", err)
	}
	return &RegexExtractor{re: re, kind: kind}, nil
}

func (e *RegexExtractor) Name() string {
	return "regex"
}

func (e *RegexExtractor) Extract(text string) (string, error) {
	m := e.re.FindStringSubmatch(text)
	if len(m) < 2 {
		return "", ErrNotFound
	}
	v := strings.TrimSpace(m[1])
	if e.kind == KindURL {
		v = html.UnescapeString(v)
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}
