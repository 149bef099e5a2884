package graphapi

import (
	"errors"

	"github.com/tidwall/gjson"
)

var errWorkflowInvalid = errors.New("workflow is not valid JSON")

// Workflow is the editor graph that produced a prompt.  Only its extra block
// is read; the rest of the document is carried as is.
type Workflow struct {
	raw []byte
}

func NewWorkflowFromJSON(data []byte) (*Workflow, error) {
	if !gjson.ValidBytes(data) {
		return nil, errWorkflowInvalid
	}
	return &Workflow{raw: data}, nil
}

// Raw returns the document bytes as they were supplied.
func (w *Workflow) Raw() []byte {
	return w.raw
}

// Extra returns the value stored under extra.<key>, which does not exist
// when the workflow has no extra block.
func (w *Workflow) Extra(key string) gjson.Result {
	return gjson.GetBytes(w.raw, "extra."+key)
}

// ExtraStrings returns the string members of the list stored under extra.<key>.
// Anything that is not a list yields nil, non-string members are skipped.
func (w *Workflow) ExtraStrings(key string) []string {
	res := w.Extra(key)
	if !res.IsArray() {
		return nil
	}
	var retv []string
	res.ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String {
			retv = append(retv, v.Str)
		}
		return true
	})
	return retv
}
