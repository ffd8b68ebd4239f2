package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a node of a configuration tree: a scalar, an ordered sequence,
// or an ordered mapping from string keys to further Values.
// The zero Value is a nil scalar.
type Value struct {
	kind   Kind
	scalar interface{}
	items  []Value
	keys   []string
	fields map[string]Value
}

// Scalar wraps a plain value (string, bool, number or nil)
func Scalar(v interface{}) Value {
	return Value{kind: KindScalar, scalar: v}
}

// Sequence builds a sequence Value from the given items
func Sequence(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindSequence, items: out}
}

// EmptyMap returns a map Value with no keys
func EmptyMap() Value {
	return Value{kind: KindMap, fields: map[string]Value{}}
}

// Field is a key/value pair used to build maps in order
type Field struct {
	Key   string
	Value Value
}

// Map builds a map Value preserving the order of fields. A repeated key keeps
// its first position and takes the last value.
func Map(fields ...Field) Value {
	m := EmptyMap()
	for _, f := range fields {
		if _, ok := m.fields[f.Key]; !ok {
			m.keys = append(m.keys, f.Key)
		}
		m.fields[f.Key] = f.Value
	}
	return m
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsMap() bool { return v.kind == KindMap }

// Len returns the number of keys of a map or items of a sequence
func (v Value) Len() int {
	switch v.kind {
	case KindMap:
		return len(v.keys)
	case KindSequence:
		return len(v.items)
	}
	return 0
}

// Keys returns the map keys in order
func (v Value) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Get returns the value stored at key for map Values
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Lookup walks a path of map keys
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, p := range path {
		next, ok := cur.Get(p)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Items returns a copy of the sequence items
func (v Value) Items() []Value {
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// Raw returns the underlying scalar
func (v Value) Raw() interface{} { return v.scalar }

// String returns the scalar rendered as a string; non-scalars return ""
func (v Value) String() string {
	if v.kind != KindScalar || v.scalar == nil {
		return ""
	}
	if s, ok := v.scalar.(string); ok {
		return s
	}
	return fmt.Sprint(v.scalar)
}

// Interface converts the tree into plain Go maps, slices and scalars.
// Key order is lost, which is why merging happens on Values.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindMap:
		out := make(map[string]interface{}, len(v.keys))
		for _, k := range v.keys {
			out[k] = v.fields[k].Interface()
		}
		return out
	case KindSequence:
		out := make([]interface{}, len(v.items))
		for i, it := range v.items {
			out[i] = it.Interface()
		}
		return out
	default:
		return v.scalar
	}
}

// clone returns a deep copy so merged trees never share storage with inputs
func (v Value) clone() Value {
	switch v.kind {
	case KindMap:
		out := Value{kind: KindMap, keys: make([]string, len(v.keys)), fields: make(map[string]Value, len(v.fields))}
		copy(out.keys, v.keys)
		for k, f := range v.fields {
			out.fields[k] = f.clone()
		}
		return out
	case KindSequence:
		out := Value{kind: KindSequence, items: make([]Value, len(v.items))}
		for i, it := range v.items {
			out.items[i] = it.clone()
		}
		return out
	default:
		return v
	}
}

// Merge combines a default tree with override trees applied left to right,
// lowest priority first. Maps merge key by key, anything else is replaced by
// the override, sequences included. Inputs are never modified.
func Merge(defaults Value, overrides ...Value) Value {
	out := defaults.clone()
	for _, o := range overrides {
		out = mergeValue(out, o)
	}
	return out
}

func mergeValue(base, over Value) Value {
	if base.kind != KindMap || over.kind != KindMap {
		return over.clone()
	}
	out := base.clone()
	for _, k := range over.keys {
		ov := over.fields[k]
		if bv, ok := out.fields[k]; ok {
			out.fields[k] = mergeValue(bv, ov)
			continue
		}
		out.keys = append(out.keys, k)
		out.fields[k] = ov.clone()
	}
	return out
}

// FromInterface converts decoded data (for example from a TOML parser) into
// a Value. Map keys are sorted since Go maps carry no order.
func FromInterface(in interface{}) Value {
	switch t := in.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Value: FromInterface(t[k])})
		}
		return Map(fields...)
	case map[interface{}]interface{}:
		conv := make(map[string]interface{}, len(t))
		for k, val := range t {
			conv[fmt.Sprint(k)] = val
		}
		return FromInterface(conv)
	case []interface{}:
		items := make([]Value, len(t))
		for i, it := range t {
			items[i] = FromInterface(it)
		}
		return Sequence(items...)
	case []string:
		items := make([]Value, len(t))
		for i, it := range t {
			items[i] = Scalar(it)
		}
		return Sequence(items...)
	default:
		return Scalar(t)
	}
}

// fromNode converts a YAML node, keeping mapping order
func fromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case 0:
		return Scalar(nil), nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return EmptyMap(), nil
		}
		return fromNode(n.Content[0])
	case yaml.MappingNode:
		m := EmptyMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind == yaml.ScalarNode && keyNode.Tag == "!!merge" {
				return Value{}, fmt.Errorf("line %d: merge keys are not supported", keyNode.Line)
			}
			val, err := fromNode(valNode)
			if err != nil {
				return Value{}, err
			}
			if _, ok := m.fields[keyNode.Value]; !ok {
				m.keys = append(m.keys, keyNode.Value)
			}
			m.fields[keyNode.Value] = val
		}
		return m, nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			it, err := fromNode(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, it)
		}
		return Value{kind: KindSequence, items: items}, nil
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.ScalarNode:
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return Scalar(v), nil
	default:
		return Value{}, fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}

// toNode renders a Value back into a YAML node
func toNode(v Value) *yaml.Node {
	switch v.kind {
	case KindMap:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range v.keys {
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: k},
				toNode(v.fields[k]))
		}
		return n
	case KindSequence:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, it := range v.items {
			n.Content = append(n.Content, toNode(it))
		}
		return n
	default:
		n := &yaml.Node{}
		if err := n.Encode(v.scalar); err != nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprint(v.scalar)}
		}
		if s, ok := v.scalar.(string); ok && strings.Contains(s, "\n") {
			n.Style = yaml.LiteralStyle
		}
		return n
	}
}

// MarshalYAML implements yaml.Marshaler so trees print in their merged order
func (v Value) MarshalYAML() (interface{}, error) {
	return toNode(v), nil
}
