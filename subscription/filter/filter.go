package filter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"subfilter/internal/shared/logger"
	"subfilter/subscription/model"
)

// FormatError 表示文档可以解析, 但不具备 "顶层 mapping + proxies 序列" 的结构。
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid subscription document: " + e.Reason
}

// SkippedEntry 记录一个因缺少可用 name 字段而被跳过的节点。
type SkippedEntry struct {
	Index  int    // 在原 proxies 序列中的下标
	Line   int    // 源文本中的行号, 未知时为 0
	Reason string
}

// Stats 汇总一次过滤的结果。
type Stats struct {
	Total   int
	Kept    int
	Skipped []SkippedEntry
}

// Filter 返回一份新文档, 其 proxies 只包含 name 中含有至少一个关键字的节点。
// 匹配为区分大小写的子串匹配; 保留节点的相对顺序和内容不变,
// proxies 以外的键原样透传。输入文档不会被修改。
func Filter(doc *model.Document, keywords []string) (*model.Document, Stats, error) {
	l := logger.WithComponent("Subscription/Filter")
	var stats Stats

	if doc == nil || doc.Root() == nil {
		return nil, stats, &FormatError{Reason: "document is empty"}
	}
	if !doc.IsMapping() {
		return nil, stats, &FormatError{Reason: fmt.Sprintf("top-level value is a %s, not a mapping", model.KindName(doc.Root()))}
	}
	proxies, ok := doc.Lookup(model.ProxiesKey)
	if !ok {
		return nil, stats, &FormatError{Reason: fmt.Sprintf("missing %q key", model.ProxiesKey)}
	}
	if proxies.Kind != yaml.SequenceNode {
		return nil, stats, &FormatError{Reason: fmt.Sprintf("%q is a %s, not a sequence", model.ProxiesKey, model.KindName(proxies))}
	}

	stats.Total = len(proxies.Content)
	l.Info().Int("total", stats.Total).Strs("keywords", keywords).Msg("Filtering proxies...")

	kept := make([]*yaml.Node, 0, len(proxies.Content))
	for i, entry := range proxies.Content {
		name, ok := model.EntryName(entry)
		if !ok {
			skip := SkippedEntry{
				Index:  i,
				Line:   entry.Line,
				Reason: fmt.Sprintf("entry is a %s without a usable %q field", model.KindName(entry), model.NameKey),
			}
			stats.Skipped = append(stats.Skipped, skip)
			l.Warn().Int("index", skip.Index).Int("line", skip.Line).Str("reason", skip.Reason).Msg("Skipping malformed proxy entry.")
			continue
		}
		if Match(name, keywords) {
			kept = append(kept, entry)
		}
	}
	stats.Kept = len(kept)

	filtered := *proxies
	filtered.Content = kept
	// 空序列以 flow 风格输出为 "[]", 保证结果仍是合法的列表。
	if len(kept) == 0 {
		filtered.Style |= yaml.FlowStyle
	}

	out, err := doc.With(model.ProxiesKey, &filtered)
	if err != nil {
		return nil, stats, &FormatError{Reason: err.Error()}
	}
	// 被丢弃的节点可能带有其他位置仍在引用的锚点。
	out = out.BindAliases()

	l.Info().Int("kept", stats.Kept).Int("skipped", len(stats.Skipped)).Msg("Filtering finished.")
	return out, stats, nil
}

// Match 报告 name 是否包含 keywords 中的任意一个子串。
func Match(name string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(name, k) {
			return true
		}
	}
	return false
}
