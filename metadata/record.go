package metadata

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/richinsley/comfymeta/graphapi"
)

type ResourceType string

const (
	ResourceModel      ResourceType = "model"
	ResourceLora       ResourceType = "lora"
	ResourceUpscaler   ResourceType = "upscaler"
	ResourceVAE        ResourceType = "vae"
	ResourceControlNet ResourceType = "controlnet"
)

// Resource describes one model file a generation used.
type Resource struct {
	Name       string       `json:"name"`
	Type       ResourceType `json:"type"`
	Weight     *float64     `json:"weight,omitempty"`
	WeightClip *float64     `json:"weightClip,omitempty"`
	Hash       string       `json:"hash,omitempty"`
}

// Record is the normalized generation metadata extracted from a ComfyUI
// prompt.  Model and ModelHash repeat the checkpoint under the key names
// Automatic1111 style consumers look for.
type Record struct {
	Prompt              string            `json:"prompt"`
	NegativePrompt      string            `json:"negativePrompt"`
	CfgScale            float64           `json:"cfgScale"`
	Steps               int               `json:"steps"`
	Seed                uint64            `json:"seed"`
	Sampler             string            `json:"sampler"`
	Scheduler           string            `json:"scheduler"`
	Denoise             *float64          `json:"denoise,omitempty"`
	Width               int               `json:"width,omitempty"`
	Height              int               `json:"height,omitempty"`
	Hashes              map[string]string `json:"hashes"`
	Models              []string          `json:"models"`
	Upscalers           []string          `json:"upscalers"`
	Vaes                []string          `json:"vaes"`
	AdditionalResources []Resource        `json:"additionalResources"`
	ControlNets         []string          `json:"controlNets"`
	VersionIDs          []int             `json:"versionIds"`
	ModelIDs            []int             `json:"modelIds"`
	Comfy               *Comfy            `json:"comfy,omitempty"`
	Model               string            `json:"Model,omitempty"`
	ModelHash           string            `json:"Model hash,omitempty"`
}

// Comfy is the original prompt/workflow pair carried along with a record so
// the workflow can be recovered later.  It is written as a JSON string, and
// read back from either a string or an already decoded object.
type Comfy struct {
	graphapi.PromptWorkflow
}

func (c *Comfy) MarshalJSON() ([]byte, error) {
	s, err := c.PromptWorkflow.ToJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}

func (c *Comfy) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	c.PromptWorkflow = graphapi.PromptWorkflow{}
	if err := json.Unmarshal(b, &c.PromptWorkflow); err != nil {
		// an unreadable payload only means there is nothing to recover
		slog.Debug("ignoring unreadable comfy payload", "error", err)
		c.PromptWorkflow = graphapi.PromptWorkflow{}
	}
	return nil
}
