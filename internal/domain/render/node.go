package render

import (
	"bytes"
	"strconv"

	"gopkg.in/yaml.v3"
)

// obj builds a mapping node that keeps keys in insertion order.
type obj struct{ n *yaml.Node }

func newObj() *obj { return &obj{n: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}} }

func (o *obj) set(key string, v *yaml.Node) *obj {
	if v == nil {
		return o
	}
	o.n.Content = append(o.n.Content, str(key), v)
	return o
}

func (o *obj) str(key, v string) *obj {
	if v == "" {
		return o
	}
	return o.set(key, str(v))
}

func (o *obj) strs(key string, vs []string) *obj {
	if len(vs) == 0 {
		return o
	}
	return o.set(key, strList(vs))
}

func (o *obj) node() *yaml.Node { return o.n }

func (o *obj) empty() bool { return len(o.n.Content) == 0 }

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolean(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
}

func list(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

func strList(vs []string) *yaml.Node {
	l := list()
	for _, v := range vs {
		l.Content = append(l.Content, str(v))
	}
	return l
}

// flow renders a short scalar list on one line.
func flow(n *yaml.Node) *yaml.Node {
	n.Style = yaml.FlowStyle
	return n
}

func encode(root *yaml.Node, headComment string) string {
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}, HeadComment: headComment}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		// Nodes built by this package are always encodable.
		panic(err)
	}
	_ = enc.Close()
	return buf.String()
}
