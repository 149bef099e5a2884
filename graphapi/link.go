package graphapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// Link is an unresolved edge as it appears in a prompt node's inputs:
// a two element list of [source node id, output slot].
type Link struct {
	NodeID string
	Slot   int
}

var errNotALink = errors.New("value is not a link")

func (l *Link) UnmarshalJSON(b []byte) error {
	var tmp []interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&tmp); err != nil {
		return err
	}
	link, ok := linkFromList(tmp)
	if !ok {
		return errNotALink
	}
	*l = *link
	return nil
}

// MarshalJSON always writes the tuple form with a string node id, the way
// ComfyUI itself serializes prompts.
func (l *Link) MarshalJSON() ([]byte, error) {
	tmp := []interface{}{
		l.NodeID,
		l.Slot,
	}
	return json.Marshal(tmp)
}

// linkFromList reports whether a decoded list is an edge placeholder. The
// first element must be usable as a node id key, the second must be a slot number.
func linkFromList(tmp []interface{}) (*Link, bool) {
	if len(tmp) != 2 {
		return nil, false
	}

	l := &Link{}
	switch id := tmp[0].(type) {
	case string:
		l.NodeID = id
	case json.Number:
		l.NodeID = id.String()
	case float64:
		l.NodeID = strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return nil, false
	}

	switch slot := tmp[1].(type) {
	case json.Number:
		i, err := slot.Int64()
		if err != nil {
			return nil, false
		}
		l.Slot = int(i)
	case float64:
		l.Slot = int(slot)
	default:
		return nil, false
	}

	return l, true
}
