package model

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ProxiesKey 是订阅文档中代理列表所在的键。
const ProxiesKey = "proxies"

// NameKey 是单个代理节点的显示名称字段。
const NameKey = "name"

const mergeKey = "<<"

// Document 是一份解析后的订阅文档。
// 它直接持有 yaml.Node 树, 因此键顺序、标量风格和注释在编码时都原样保留。
// Document 一旦创建即视为不可变; 派生文档只替换需要改变的节点。
type Document struct {
	node *yaml.Node // DocumentNode
}

// NewDocument 用一个已解析的节点创建 Document。
// node 可以是 DocumentNode, 也可以直接是顶层的 MappingNode。
func NewDocument(node *yaml.Node) *Document {
	if node != nil && node.Kind != yaml.DocumentNode {
		node = &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{node}}
	}
	return &Document{node: node}
}

// Root 返回顶层值节点, 文档为空时返回 nil。
func (d *Document) Root() *yaml.Node {
	if d == nil || d.node == nil || len(d.node.Content) == 0 {
		return nil
	}
	return d.node.Content[0]
}

// IsMapping 报告顶层值是否为 mapping。
func (d *Document) IsMapping() bool {
	root := d.Root()
	return root != nil && root.Kind == yaml.MappingNode
}

// Lookup 返回顶层 mapping 中 key 对应的值节点。key 重复时以最后一个为准。
func (d *Document) Lookup(key string) (*yaml.Node, bool) {
	if !d.IsMapping() {
		return nil, false
	}
	return mappingValue(d.Root(), key)
}

// Keys 按原始顺序返回顶层 mapping 的所有键。
func (d *Document) Keys() []string {
	if !d.IsMapping() {
		return nil
	}
	root := d.Root()
	keys := make([]string, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys = append(keys, root.Content[i].Value)
	}
	return keys
}

// With 返回一份新文档, 其中 key 的值被替换为 value, 其余键值对共享原节点。
// 原文档不会被修改。key 不存在时追加到末尾; key 重复出现时只保留第一个位置。
func (d *Document) With(key string, value *yaml.Node) (*Document, error) {
	if !d.IsMapping() {
		return nil, fmt.Errorf("document root is not a mapping")
	}
	root := d.Root()
	newRoot := *root
	newRoot.Content = make([]*yaml.Node, 0, len(root.Content)+2)

	replaced := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Value == key {
			if replaced {
				continue
			}
			v = value
			replaced = true
		}
		newRoot.Content = append(newRoot.Content, k, v)
	}
	if !replaced {
		newRoot.Content = append(newRoot.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			value,
		)
	}

	newNode := *d.node
	newNode.Content = []*yaml.Node{&newRoot}
	return &Document{node: &newNode}, nil
}

// BindAliases 返回一份文档, 其中引用了已不存在锚点的别名被替换为锚点节点本身。
// 过滤掉带锚点的节点后, 剩余的别名按文档顺序第一次出现的位置重新定义该锚点,
// 之后的别名照常引用它。没有需要替换的别名时返回 d 本身。
func (d *Document) BindAliases() *Document {
	if d == nil || d.node == nil {
		return d
	}
	b := aliasBinder{defined: map[*yaml.Node]bool{}}
	out := b.visit(d.node)
	if out == d.node {
		return d
	}
	return &Document{node: out}
}

type aliasBinder struct {
	defined map[*yaml.Node]bool
}

// visit 按编码顺序遍历 n, 只复制路径上发生变化的节点。
func (b *aliasBinder) visit(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.AliasNode {
		if n.Alias == nil || b.defined[n.Alias] {
			return n
		}
		return b.visit(n.Alias)
	}
	if n.Anchor != "" {
		b.defined[n] = true
	}

	var content []*yaml.Node
	for i, c := range n.Content {
		v := b.visit(c)
		if v != c && content == nil {
			content = append([]*yaml.Node(nil), n.Content...)
		}
		if content != nil {
			content[i] = v
		}
	}
	if content == nil {
		return n
	}
	cp := *n
	cp.Content = content
	return &cp
}

// Encode 把文档序列化为 YAML: 两空格缩进, 保留键顺序, 不转义非 ASCII 字符。
func (d *Document) Encode() ([]byte, error) {
	if d == nil || d.node == nil {
		return nil, fmt.Errorf("cannot encode an empty document")
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d.node); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush document: %w", err)
	}
	return buf.Bytes(), nil
}

// EntryName 返回代理节点的 name 字段, 包括通过合并键 "<<" 继承的 name。
// 节点不是 mapping、缺少 name 或 name 为 null 或非标量时 ok 为 false。空字符串是合法的名称。
func EntryName(entry *yaml.Node) (name string, ok bool) {
	entry = resolve(entry)
	if entry == nil || entry.Kind != yaml.MappingNode {
		return "", false
	}
	v, found := mappingValue(entry, NameKey)
	if !found {
		return mergedName(entry)
	}
	v = resolve(v)
	if v == nil || v.Kind != yaml.ScalarNode || v.Tag == "!!null" {
		return "", false
	}
	return v.Value, true
}

// mergedName 在 "<<" 引用的 mapping 中查找 name, 序列中靠前的优先。
func mergedName(entry *yaml.Node) (string, bool) {
	m, found := mappingValue(entry, mergeKey)
	if !found {
		return "", false
	}
	m = resolve(m)
	if m == nil {
		return "", false
	}
	switch m.Kind {
	case yaml.MappingNode:
		return EntryName(m)
	case yaml.SequenceNode:
		for _, item := range m.Content {
			if name, ok := EntryName(item); ok {
				return name, true
			}
		}
	}
	return "", false
}

// KindName 返回节点类型的可读名称, 用于诊断信息。
func KindName(n *yaml.Node) string {
	if n == nil {
		return "nothing"
	}
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "null"
		}
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown"
}

// mappingValue 返回 key 最后一次出现时的值。
func mappingValue(m *yaml.Node, key string) (*yaml.Node, bool) {
	for i := len(m.Content) - 2; i >= 0; i -= 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1], true
		}
	}
	return nil, false
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
