package graphapi

import (
	"bytes"
	"encoding/json"
)

// PromptWorkflow is the prompt/workflow pair ComfyUI embeds in generated
// images.  Both halves are kept as raw JSON so the documents survive a round
// trip without losing fields this package does not model.
type PromptWorkflow struct {
	Prompt   json.RawMessage `json:"prompt"`
	Workflow json.RawMessage `json:"workflow"`
}

// NewPromptWorkflow builds the pair from the two documents.  Both must be
// valid JSON; an empty workflow is stored as null.
func NewPromptWorkflow(prompt, workflow []byte) (*PromptWorkflow, error) {
	pw := &PromptWorkflow{}
	var err error
	if pw.Prompt, err = compactJSON(prompt); err != nil {
		return nil, err
	}
	if pw.Workflow, err = compactJSON(workflow); err != nil {
		return nil, err
	}
	return pw, nil
}

// HasWorkflow reports whether the pair carries a non-null workflow document.
func (pw *PromptWorkflow) HasWorkflow() bool {
	if pw == nil {
		return false
	}
	w := bytes.TrimSpace(pw.Workflow)
	return len(w) != 0 && !bytes.Equal(w, []byte("null"))
}

func (pw *PromptWorkflow) ToJSON() (string, error) {
	data, err := json.Marshal(pw)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func compactJSON(b []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return json.RawMessage("null"), nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}
