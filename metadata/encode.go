package metadata

import (
	"encoding/json"
	"fmt"
)

// Encode recovers the workflow document a Record was parsed from.  It returns
// an empty string when the record carries no workflow.  The prompt graph is
// not recovered.
func Encode(r *Record) string {
	if r == nil || r.Comfy == nil || !r.Comfy.HasWorkflow() {
		return ""
	}
	return string(r.Comfy.Workflow)
}

// EncodeJSON is Encode for a record that is still serialized.  Only the comfy
// field is read, so records written by other producers work too.  Only a
// record that is not a JSON object is an error.
func EncodeJSON(data []byte) (string, error) {
	var r struct {
		Comfy *Comfy `json:"comfy"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return "", fmt.Errorf("decode record: %w", err)
	}
	return Encode(&Record{Comfy: r.Comfy}), nil
}
