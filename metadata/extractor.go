// Package metadata extracts normalized generation parameters from the
// prompt and workflow documents ComfyUI embeds in the images it saves.
package metadata

import (
	"fmt"
	"log/slog"

	"github.com/richinsley/comfymeta/graphapi"
	"github.com/richinsley/comfymeta/samplers"
)

// Extractor turns ComfyUI exports into Records.  The zero value is not
// usable, call NewExtractor.  An Extractor holds no per-call state and may be
// shared between goroutines.
type Extractor struct {
	samplers *samplers.Table
}

type Option func(*Extractor)

// WithSamplerTable replaces the sampler name translation table.
func WithSamplerTable(t *samplers.Table) Option {
	return func(e *Extractor) {
		e.samplers = t
	}
}

func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{samplers: samplers.Default}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = NewExtractor()

// Parse extracts a Record using the default sampler table.
func Parse(exif Exif) (*Record, error) {
	return defaultExtractor.Parse(exif)
}

// Parse decodes the prompt graph, walks it once and builds the Record from
// the canonical sampler and the loaders it found.
func (e *Extractor) Parse(exif Exif) (*Record, error) {
	prompt := Sanitize(exif.Prompt)
	graph, err := graphapi.NewGraphFromJsonString(prompt)
	if err != nil {
		return nil, fmt.Errorf("decode prompt: %w", err)
	}

	var workflow *graphapi.Workflow
	if exif.Workflow != "" {
		workflow, err = graphapi.NewWorkflowFromJSON([]byte(exif.Workflow))
		if err != nil {
			return nil, fmt.Errorf("decode workflow: %w", err)
		}
	}

	pair, err := graphapi.NewPromptWorkflow([]byte(prompt), []byte(exif.Workflow))
	if err != nil {
		return nil, fmt.Errorf("encode comfy payload: %w", err)
	}

	acc := newAccumulator()
	err = graph.Walk(func(n *graphapi.Node) error {
		if c := classify(n); c != nil {
			c.accumulate(acc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk prompt: %w", err)
	}

	sampler, err := pickSampler(acc.samplers)
	if err != nil {
		return nil, err
	}
	slog.Debug("picked sampler", "node", sampler.node.ID, "class_type", sampler.node.ClassType, "samplers", len(acc.samplers))

	versionIDs, modelIDs := parseAirs(workflow)

	r := &Record{
		Prompt:              promptText(sampler.positive),
		NegativePrompt:      promptText(sampler.negative),
		CfgScale:            sampler.cfg,
		Steps:               int(sampler.steps),
		Seed:                sampler.seed,
		Sampler:             sampler.samplerName,
		Scheduler:           sampler.scheduler,
		Denoise:             sampler.denoise,
		Hashes:              acc.hashes,
		Models:              acc.models,
		Upscalers:           acc.upscalers,
		Vaes:                acc.vaes,
		AdditionalResources: acc.resources,
		ControlNets:         acc.controlNets,
		VersionIDs:          versionIDs,
		ModelIDs:            modelIDs,
		Comfy:               &Comfy{PromptWorkflow: *pair},
	}
	r.Width, r.Height = imageSize(sampler)

	for _, res := range acc.resources {
		if res.Type == ResourceModel {
			r.Model = res.Name
			r.ModelHash = res.Hash
			break
		}
	}

	// ControlNetApply sits between the sampler and the text encoder
	if sampler.positive != nil && sampler.positive.ClassType == "ControlNetApply" {
		r.Prompt = stringInput(sampler.positive.InputNode("conditioning"), "text")
	}

	r.Sampler = e.samplers.Remap(r.Sampler, r.Scheduler)

	if len(r.Models) > 0 {
		r.Model = stripExtension(r.Models[0])
	}
	return r, nil
}

// imageSize reads the latent dimensions, falling back to inputs on the
// sampler itself for custom samplers that take them directly.
func imageSize(s samplerNode) (int, int) {
	for _, n := range []*graphapi.Node{s.latentImage, s.node} {
		w, wok := n.Int("width")
		h, hok := n.Int("height")
		if wok && hok {
			return int(w), int(h)
		}
	}
	return 0, 0
}
