package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/richinsley/comfymeta/pnginfo"
)

// Exif is the raw image metadata a ComfyUI export carries: the serialized
// prompt graph and the serialized editor workflow.
type Exif struct {
	Prompt   string `json:"prompt"`
	Workflow string `json:"workflow"`
}

// CanParse reports whether exif looks like a ComfyUI export.  Anything else
// belongs to another extractor.
func CanParse(exif Exif) bool {
	return exif.Prompt != "" && exif.Workflow != ""
}

// ExifFromChunks picks the prompt and workflow out of PNG text chunks.
func ExifFromChunks(chunks map[string]string) Exif {
	return Exif{
		Prompt:   chunks["prompt"],
		Workflow: chunks["workflow"],
	}
}

// ExifFromPNG reads the prompt and workflow text chunks of a PNG image.
func ExifFromPNG(r io.Reader) (Exif, error) {
	chunks, err := pnginfo.ReadTextChunks(r)
	if err != nil {
		return Exif{}, err
	}
	return ExifFromChunks(chunks), nil
}

// ExifFromJSON reads an exported metadata object.  prompt and workflow may
// each be either a JSON encoded string or the decoded document itself.
func ExifFromJSON(data []byte) (Exif, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Exif{}, fmt.Errorf("decode exif: %w", err)
	}

	prompt, err := documentText(fields["prompt"])
	if err != nil {
		return Exif{}, fmt.Errorf("decode exif prompt: %w", err)
	}
	workflow, err := documentText(fields["workflow"])
	if err != nil {
		return Exif{}, fmt.Errorf("decode exif workflow: %w", err)
	}
	return Exif{Prompt: prompt, Workflow: workflow}, nil
}

func documentText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(raw), nil
}
