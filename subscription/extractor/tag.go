package extractor

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TagExtractor 在 HTML 中按 CSS 选择器查找元素,
// 返回第一个自身或父元素文本包含锚定短语的元素的链接 (href) 或文本。
type TagExtractor struct {
	selector string
	anchor   string
	kind     Kind
}

// NewTagExtractor 创建一个新的 TagExtractor。selector 为空时使用 "a"。
func NewTagExtractor(selector, anchor string, kind Kind) *TagExtractor {
	if selector == "" {
		selector = "a"
	}
	return &TagExtractor{
		selector: selector,
		anchor:   strings.ToLower(anchor),
		kind:     kind,
	}
}

func (e *TagExtractor) Name() string {
	return "tag"
}

func (e *TagExtractor) Extract(text string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var found string
	doc.Find(e.selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if e.anchor != "" && !e.anchored(sel) {
			return true
		}
		if v := e.candidate(sel); v != "" {
			found = v
			return false
		}
		return true
	})

	if found == "" {
		return "", ErrNotFound
	}
	return found, nil
}

func (e *TagExtractor) anchored(sel *goquery.Selection) bool {
	if strings.Contains(strings.ToLower(sel.Text()), e.anchor) {
		return true
	}
	return strings.Contains(strings.ToLower(sel.Parent().Text()), e.anchor)
}

func (e *TagExtractor) candidate(sel *goquery.Selection) string {
	txt := strings.TrimSpace(sel.Text())
	if e.kind == KindToken {
		// 令牌通常是元素文本中最后一个字段, e.g. "token: abc123"
		fields := strings.Fields(txt)
		if len(fields) == 0 {
			return ""
		}
		return fields[len(fields)-1]
	}
	if href, ok := sel.Attr("href"); ok {
		href = strings.TrimSpace(href)
		if isHTTP(href) {
			return href
		}
	}
	if isHTTP(txt) {
		return txt
	}
	return ""
}

func isHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
