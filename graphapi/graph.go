package graphapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

var errGraphNotObject = errors.New("prompt must be a JSON object")

// Graph is a decoded prompt: every node keyed by its id.  Nodes keeps the
// order in which the ids appear in the document, which is the order the
// graph is walked in.
type Graph struct {
	Nodes     []*Node          `json:"-"`
	NodesByID map[string]*Node `json:"-"`
}

func (t *Graph) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errGraphNotObject
	}

	t.Nodes = make([]*Node, 0)
	t.NodesByID = make(map[string]*Node)

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		id := kt.(string)

		node := &Node{}
		if err := dec.Decode(node); err != nil {
			return err
		}
		node.ID = id

		if prev, dup := t.NodesByID[id]; dup {
			// last one wins, like any JSON object decoder, but it keeps its first position
			*prev = *node
			continue
		}
		t.Nodes = append(t.Nodes, node)
		t.NodesByID[id] = node
	}

	_, err = dec.Token() // consume closing brace
	return err
}

func (t *Graph) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range t.Nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		data, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *Graph) GetNodeById(id string) *Node {
	val, ok := t.NodesByID[id]
	if ok {
		return val
	}
	return nil
}

// GetNodesWithType retrieves all nodes in the graph that match a specified class type,
// in document order.
func (t *Graph) GetNodesWithType(classType string) []*Node {
	retv := make([]*Node, 0)
	for _, n := range t.Nodes {
		if n.ClassType == classType {
			retv = append(retv, n)
		}
	}
	return retv
}

// ResolveNode points every edge input of n at its source node.  Lookups go
// through the complete id map, so edges to nodes that have not been visited
// yet resolve the same as any other.  Edges to unknown ids stay unresolved.
func (t *Graph) ResolveNode(n *Node) {
	if n.resolved {
		return
	}
	for _, name := range n.InputOrder {
		in := n.Inputs[name]
		if in.Link == nil {
			continue
		}
		src := t.GetNodeById(in.Link.NodeID)
		if src == nil {
			slog.Debug("unresolved link", "node", n.ID, "input", name, "source", in.Link.NodeID)
			continue
		}
		in.Node = src
	}
	n.resolved = true
}

// Walk visits every node once in document order, resolving its edges right
// before handing it to fn.  The first error returned by fn stops the walk.
func (t *Graph) Walk(fn func(n *Node) error) error {
	for _, n := range t.Nodes {
		t.ResolveNode(n)
		if err := fn(n); err != nil {
			return err
		}
	}
	return nil
}

// Resolve resolves all edges without visiting.
func (t *Graph) Resolve() {
	for _, n := range t.Nodes {
		t.ResolveNode(n)
	}
}

func NewGraphFromJSON(data []byte) (*Graph, error) {
	graph := &Graph{}
	if err := json.Unmarshal(data, graph); err != nil {
		return nil, err
	}
	return graph, nil
}

func NewGraphFromJsonReader(r io.Reader) (*Graph, error) {
	fileContent, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return NewGraphFromJSON(fileContent)
}

func NewGraphFromJsonFile(path string) (*Graph, error) {
	freader, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer freader.Close()

	return NewGraphFromJsonReader(freader)
}

func NewGraphFromJsonString(data string) (*Graph, error) {
	reader := strings.NewReader(data)
	return NewGraphFromJsonReader(reader)
}

func (t *Graph) GraphToJSON() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
