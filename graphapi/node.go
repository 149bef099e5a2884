package graphapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// Input is a single named input of a prompt node.  It holds either a scalar
// value or an edge.  Once the owning graph has resolved the node, an edge
// whose source exists in the graph also carries the source Node.
type Input struct {
	// Value can be one of:
	//	json.Number
	//	string
	//	bool
	//	nil
	//	[]interface{} or map[string]interface{} for anything that is not an edge
	Value interface{}
	Link  *Link
	Node  *Node
}

// IsLink reports whether the input was an edge in the source document.
func (in *Input) IsLink() bool {
	return in != nil && in.Link != nil
}

// IsResolved reports whether the input is an edge pointing at a known node.
func (in *Input) IsResolved() bool {
	return in != nil && in.Node != nil
}

func (in *Input) String() (string, bool) {
	if in == nil || in.Link != nil {
		return "", false
	}
	s, ok := in.Value.(string)
	return s, ok
}

func (in *Input) Number() (float64, bool) {
	if in == nil || in.Link != nil {
		return 0, false
	}
	return toFloat(in.Value)
}

func (in *Input) MarshalJSON() ([]byte, error) {
	if in.Link != nil {
		return in.Link.MarshalJSON()
	}
	return json.Marshal(in.Value)
}

// Node is one entry of a prompt: the class it instantiates and its inputs.
type Node struct {
	ID         string
	ClassType  string
	Inputs     map[string]*Input
	InputOrder []string
	// Hashes holds content hashes some exporters attach to loader nodes,
	// keyed by attribute name (ckpt_hash, lora_hash).
	Hashes   map[string]string
	resolved bool
}

var hashAttributes = []string{"ckpt_hash", "lora_hash"}

var (
	errNodeNotObject   = errors.New("prompt node must be an object")
	errInputsNotObject = errors.New("node inputs must be an object")
)

func (n *Node) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return errNodeNotObject
	}

	n.Inputs = make(map[string]*Input)
	n.InputOrder = make([]string, 0)
	n.Hashes = make(map[string]string)

	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return err
		}

		key := t.(string)
		switch key {
		case "class_type":
			if err := dec.Decode(&n.ClassType); err != nil {
				return err
			}
		case "inputs":
			if err := n.decodeInputs(dec); err != nil {
				return err
			}
		case "ckpt_hash", "lora_hash":
			var v interface{}
			if err := dec.Decode(&v); err != nil {
				return err
			}
			if s, ok := v.(string); ok && s != "" {
				n.Hashes[key] = s
			}
		default:
			if err := dec.Decode(new(interface{})); err != nil { // consume and ignore non-expected field
				return err
			}
		}
	}

	if _, err := dec.Token(); err != nil { // consume closing brace
		return err
	}

	// some exporters put the hashes among the inputs instead
	for _, k := range hashAttributes {
		if _, ok := n.Hashes[k]; ok {
			continue
		}
		if s, ok := n.Inputs[k].String(); ok && s != "" {
			n.Hashes[k] = s
		}
	}
	return nil
}

func (n *Node) decodeInputs(dec *json.Decoder) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if t == nil {
		// "inputs": null
		return nil
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return errInputsNotObject
	}

	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		name := kt.(string)

		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return err
		}

		in := &Input{Value: v}
		if list, ok := v.([]interface{}); ok {
			if l, ok := linkFromList(list); ok {
				in = &Input{Link: l}
			}
		}
		if _, dup := n.Inputs[name]; !dup {
			n.InputOrder = append(n.InputOrder, name)
		}
		n.Inputs[name] = in
	}

	_, err = dec.Token() // consume closing brace of inputs
	return err
}

func (n *Node) MarshalJSON() ([]byte, error) {
	tmp := struct {
		Inputs    map[string]*Input `json:"inputs"`
		ClassType string            `json:"class_type"`
		CkptHash  string            `json:"ckpt_hash,omitempty"`
		LoraHash  string            `json:"lora_hash,omitempty"`
	}{
		Inputs:    n.Inputs,
		ClassType: n.ClassType,
		CkptHash:  n.Hashes["ckpt_hash"],
		LoraHash:  n.Hashes["lora_hash"],
	}
	return json.Marshal(tmp)
}

// Input returns the named input, or nil
func (n *Node) Input(name string) *Input {
	if n == nil {
		return nil
	}
	return n.Inputs[name]
}

func (n *Node) Has(name string) bool {
	return n.Input(name) != nil
}

// InputNode returns the node an input edge points at, or nil when the input
// is missing, a scalar, or an edge to an unknown node.
func (n *Node) InputNode(name string) *Node {
	in := n.Input(name)
	if in == nil {
		return nil
	}
	return in.Node
}

// String returns a scalar string input.
func (n *Node) String(name string) (string, bool) {
	return n.Input(name).String()
}

// Number returns a scalar numeric input as a float64.
func (n *Node) Number(name string) (float64, bool) {
	return n.Input(name).Number()
}

// Int returns a scalar numeric input truncated to an int64.
func (n *Node) Int(name string) (int64, bool) {
	in := n.Input(name)
	if in == nil || in.Link != nil {
		return 0, false
	}
	if num, ok := in.Value.(json.Number); ok {
		if i, err := num.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := toFloat(in.Value)
	if !ok || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// Uint returns a scalar non-negative numeric input.  Seeds use the full
// unsigned 64 bit range and lose precision as float64.
func (n *Node) Uint(name string) (uint64, bool) {
	in := n.Input(name)
	if in == nil || in.Link != nil {
		return 0, false
	}
	if num, ok := in.Value.(json.Number); ok {
		if u, err := strconv.ParseUint(num.String(), 10, 64); err == nil {
			return u, true
		}
	}
	f, ok := toFloat(in.Value)
	if !ok || f < 0 || f >= math.MaxUint64 {
		return 0, false
	}
	return uint64(f), true
}

// Hash returns a side-channel content hash such as ckpt_hash.
func (n *Node) Hash(key string) (string, bool) {
	if n == nil {
		return "", false
	}
	h, ok := n.Hashes[key]
	return h, ok && h != ""
}

// IsResolved reports whether the owning graph has resolved the node's edges.
func (n *Node) IsResolved() bool {
	return n.resolved
}

func toFloat(v interface{}) (float64, bool) {
	switch value := v.(type) {
	case json.Number:
		f, err := value.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	case float64:
		return value, true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	}
	return 0, false
}
