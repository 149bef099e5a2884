package metadata

import (
	"strings"

	"github.com/richinsley/comfymeta/graphapi"
)

// ComfyUI writes non-JSON numbers into some list widgets.  Only the exact
// bracketed forms it produces are patched.
var sanitizer = strings.NewReplacer(
	"[NaN]", "[]",
	"[Infinity]", "[]",
)

// Sanitize replaces the literal tokens [NaN] and [Infinity] with [] so the
// prompt decodes as JSON.  All other text is left alone.
func Sanitize(text string) string {
	return sanitizer.Replace(text)
}

// ModelFileName reduces a model reference such as "SDXL\\base\\model.safetensors"
// to its bare name: the last path segment without its final extension.  A
// reference ending in a separator has an empty last segment.
func ModelFileName(path string) string {
	return stripExtension(path[strings.LastIndexAny(path, "/\\")+1:])
}

// stripExtension cuts the last dot and everything after it, so a dotfile
// name such as ".safetensors" reduces to "".
func stripExtension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// coerceNumber reads a numeric input that is either a literal or wired from a
// constant helper node exposing a single Value input.
func coerceNumber(in *graphapi.Input) (float64, bool) {
	if in == nil {
		return 0, false
	}
	if in.IsResolved() {
		if f, ok := in.Node.Number("Value"); ok {
			return f, true
		}
		return in.Node.Number("value")
	}
	return in.Number()
}

// maxTextDepth bounds how many text indirections are followed, so a cyclic
// prompt cannot recurse forever.
const maxTextDepth = 64

// promptText extracts the prompt of a conditioning node.  Missing text is
// not an error, a negative prompt is often empty.
func promptText(n *graphapi.Node) string {
	return promptTextDepth(n, 0)
}

func promptTextDepth(n *graphapi.Node, depth int) string {
	if n == nil || depth > maxTextDepth {
		return ""
	}

	text := n.Input("text")
	if s, ok := text.String(); ok && (s != "" || !n.Has("text_g")) {
		return s
	}
	if text.IsResolved() {
		return promptTextDepth(text.Node, depth+1)
	}

	// SDXL encoders carry two prompts
	g, ok := n.String("text_g")
	if !ok {
		return ""
	}
	l, ok := n.String("text_l")
	if !ok || l == g {
		return g
	}
	return g + ", " + l
}
