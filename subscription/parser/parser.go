package parser

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
	"subfilter/subscription/model"
)

// SnippetLimit 是 ParseError 中保留的原始输入前缀长度 (按字符计)。
const SnippetLimit = 500

// ErrEmpty 表示输入为空或只包含空白/空文档。
var ErrEmpty = errors.New("document is empty")

// ParseError 表示输入无法解析为订阅文档。
// Snippet 只保留输入的前 SnippetLimit 个字符, 用于诊断输出。
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse subscription document: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse 把 YAML (或 JSON) 文本解析为 Document。
// 解析只构建节点树, 不会实例化任何自定义类型。
func Parse(text string) (*model.Document, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Snippet: Snippet(text), Err: ErrEmpty}
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return nil, &ParseError{Snippet: Snippet(text), Err: err}
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return nil, &ParseError{Snippet: Snippet(text), Err: ErrEmpty}
	}

	root := node.Content[0]
	if root.Kind == yaml.ScalarNode && root.Tag == "!!null" {
		return nil, &ParseError{Snippet: Snippet(text), Err: ErrEmpty}
	}
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{
			Snippet: Snippet(text),
			Err:     fmt.Errorf("top-level value is a %s, not a mapping", model.KindName(root)),
		}
	}
	return model.NewDocument(&node), nil
}

// Snippet 返回 text 的前 SnippetLimit 个字符, 不会截断多字节字符。
func Snippet(text string) string {
	n := 0
	for i := range text {
		if n == SnippetLimit {
			return text[:i]
		}
		n++
	}
	return text
}
