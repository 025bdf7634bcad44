package core

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a front matter block is valid YAML but not a mapping.
var ErrNotMapping = errors.New("front matter must be a mapping")

// Metadata is an insertion-ordered mapping decoded from a YAML front matter block.
//
// Values are string, bool, int, float64, nil, []any, *Metadata, or a raw
// *yaml.Node for scalars that must round-trip verbatim (timestamps).
type Metadata struct {
	keys   []string
	values map[string]any
}

// NewMetadata returns an empty mapping.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]any)}
}

// Len returns the number of keys.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in order.
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Has reports whether key is present.
func (m *Metadata) Has(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.values[key]
	return ok
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (m *Metadata) String(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Map returns the nested mapping under key.
func (m *Metadata) Map(key string) (*Metadata, bool) {
	v, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	mm, ok := v.(*Metadata)
	return mm, ok
}

// Set stores value under key. A new key is appended; an existing key keeps its position.
func (m *Metadata) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// SetDefault stores value only when key is absent.
func (m *Metadata) SetDefault(key string, value any) {
	if !m.Has(key) {
		m.Set(key, value)
	}
}

// Delete removes key.
func (m *Metadata) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	out := NewMetadata()
	for _, k := range m.keys {
		out.Set(k, cloneValue(m.values[k]))
	}
	return out
}

// Reordered returns a shallow copy whose keys listed in order come first,
// in that order, followed by every other key in its original relative order.
func (m *Metadata) Reordered(order []string) *Metadata {
	out := NewMetadata()
	for _, k := range order {
		if v, ok := m.values[k]; ok && !out.Has(k) {
			out.Set(k, v)
		}
	}
	for _, k := range m.keys {
		if !out.Has(k) {
			out.Set(k, m.values[k])
		}
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Metadata:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Truthy mirrors YAML-author expectations: empty strings, zero numbers,
// false, null, and empty collections are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case uint64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case *Metadata:
		return t.Len() > 0
	default:
		return true
	}
}

// ScalarText renders a scalar value as plain text for tabular output.
func ScalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *yaml.Node:
		return t.Value
	default:
		return fmt.Sprint(t)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler, preserving key order.
func (m *Metadata) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	if m.values == nil {
		m.values = make(map[string]any)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, vn := node.Content[i], node.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}
		if m.Has(k.Value) {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		v, err := decodeNode(vn)
		if err != nil {
			return err
		}
		m.Set(k.Value, v)
	}
	return nil
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeNode(n.Content[0])
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	case yaml.MappingNode:
		mm := NewMetadata()
		if err := mm.UnmarshalYAML(n); err != nil {
			return nil, err
		}
		return mm, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			raw := *n
			raw.Line, raw.Column = 0, 0
			return &raw, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}

// MarshalYAML implements yaml.Marshaler, emitting keys in order.
func (m *Metadata) MarshalYAML() (any, error) {
	return encodeValue(m)
}

func encodeValue(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case *Metadata:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if t == nil {
			return n, nil
		}
		for _, k := range t.keys {
			vn, err := encodeValue(t.values[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, vn)
		}
		return n, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		mm := NewMetadata()
		for _, k := range keys {
			mm.Set(k, t[k])
		}
		return encodeValue(mm)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			in, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, in)
		}
		return n, nil
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return encodeValue(items)
	case *yaml.Node:
		return t, nil
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFloat(t)}, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, err
		}
		return n, nil
	}
}

// formatFloat keeps a decimal point on integral values so they decode
// back as floats.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// DecodeMetadata parses a YAML block into ordered metadata.
// An empty block yields an empty mapping.
func DecodeMetadata(src []byte) (*Metadata, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, err
	}
	m := NewMetadata()
	if root.Kind == 0 || (root.Kind == yaml.DocumentNode && len(root.Content) == 0) {
		return m, nil
	}
	doc := root.Content[0]
	if doc.Kind == yaml.ScalarNode && doc.ShortTag() == "!!null" {
		return m, nil
	}
	if doc.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	if err := m.UnmarshalYAML(&root); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeMetadata renders metadata as a YAML block ending in a single newline.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	if m.Len() == 0 {
		return nil, nil
	}
	n, err := encodeValue(m)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(n); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(buf.String(), "\n") + "\n"), nil
}

// TopLevelKeys returns the top-level key order of a YAML mapping block
// without decoding its values. It is used for drift diagnostics only.
func TopLevelKeys(src []byte) []string {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil || len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		keys = append(keys, doc.Content[i].Value)
	}
	return keys
}
