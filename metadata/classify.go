package metadata

import (
	"errors"
	"math"

	"github.com/richinsley/comfymeta/graphapi"
)

var ErrNoSampler = errors.New("no sampler node found in prompt")

// LoRAs applied with a model strength this close to zero have no effect.
const loraStrengthEpsilon = 0.001

// accumulator collects what the node sweep finds, per category.
type accumulator struct {
	samplers    []samplerNode
	hashes      map[string]string
	models      []string
	upscalers   []string
	vaes        []string
	controlNets []string
	resources   []Resource
}

func newAccumulator() *accumulator {
	return &accumulator{
		samplers:    make([]samplerNode, 0),
		hashes:      make(map[string]string),
		models:      make([]string, 0),
		upscalers:   make([]string, 0),
		vaes:        make([]string, 0),
		controlNets: make([]string, 0),
		resources:   make([]Resource, 0),
	}
}

// classified is a prompt node of a class the extractor understands.
type classified interface {
	accumulate(acc *accumulator)
}

// classify turns a resolved node into its class specific view.  Classes the
// extractor does not use return nil.
func classify(n *graphapi.Node) classified {
	switch n.ClassType {
	case "KSampler":
		return newKSampler(n)
	case "KSamplerAdvanced":
		return newKSamplerAdvanced(n)
	case "LoraLoader":
		return newLoraLoader(n)
	case "CheckpointLoaderSimple":
		return checkpointLoader{
			name: ModelFileName(stringInput(n, "ckpt_name")),
			hash: hashOf(n, "ckpt_hash"),
		}
	case "UpscaleModelLoader":
		return upscaleModelLoader{name: stringInput(n, "model_name")}
	case "VAELoader":
		return vaeLoader{name: stringInput(n, "vae_name")}
	case "ControlNetLoader":
		return controlNetLoader{name: stringInput(n, "control_net_name")}
	}
	return nil
}

// samplerNode is the generation settings of one KSampler or KSamplerAdvanced.
type samplerNode struct {
	node        *graphapi.Node
	seed        uint64
	steps       float64
	cfg         float64
	samplerName string
	scheduler   string
	denoise     *float64
	model       *graphapi.Node
	positive    *graphapi.Node
	negative    *graphapi.Node
	latentImage *graphapi.Node
}

func (s samplerNode) accumulate(acc *accumulator) {
	acc.samplers = append(acc.samplers, s)
}

func newSamplerNode(n *graphapi.Node) samplerNode {
	s := samplerNode{
		node:        n,
		samplerName: stringInput(n, "sampler_name"),
		scheduler:   stringInput(n, "scheduler"),
		model:       n.InputNode("model"),
		positive:    n.InputNode("positive"),
		negative:    n.InputNode("negative"),
		latentImage: n.InputNode("latent_image"),
	}
	if d, ok := n.Number("denoise"); ok {
		s.denoise = &d
	}
	return s
}

func newKSampler(n *graphapi.Node) samplerNode {
	s := newSamplerNode(n)
	s.seed, _ = n.Uint("seed")
	s.steps, _ = n.Number("steps")
	s.cfg, _ = n.Number("cfg")
	return s
}

// KSamplerAdvanced names its seed noise_seed, and its steps and cfg are often
// driven by primitive value nodes.
func newKSamplerAdvanced(n *graphapi.Node) samplerNode {
	s := newSamplerNode(n)
	if seed, ok := n.Uint("seed"); ok {
		s.seed = seed
	} else {
		s.seed, _ = n.Uint("noise_seed")
	}
	s.steps, _ = coerceNumber(n.Input("steps"))
	s.cfg, _ = coerceNumber(n.Input("cfg"))
	return s
}

type loraLoader struct {
	name          string
	strengthModel *float64
	strengthClip  *float64
	hash          string
}

func newLoraLoader(n *graphapi.Node) loraLoader {
	l := loraLoader{
		name: ModelFileName(stringInput(n, "lora_name")),
		hash: hashOf(n, "lora_hash"),
	}
	if f, ok := n.Number("strength_model"); ok {
		l.strengthModel = &f
	}
	if f, ok := n.Number("strength_clip"); ok {
		l.strengthClip = &f
	}
	return l
}

func (l loraLoader) accumulate(acc *accumulator) {
	if l.strengthModel != nil && math.Abs(*l.strengthModel) < loraStrengthEpsilon {
		return
	}
	if l.hash != "" {
		acc.hashes["lora:"+l.name] = l.hash
	}
	acc.resources = append(acc.resources, Resource{
		Name:       l.name,
		Type:       ResourceLora,
		Weight:     l.strengthModel,
		WeightClip: l.strengthClip,
		Hash:       l.hash,
	})
}

type checkpointLoader struct {
	name string
	hash string
}

func (c checkpointLoader) accumulate(acc *accumulator) {
	acc.models = append(acc.models, c.name)
	if _, ok := acc.hashes["model"]; !ok && c.hash != "" {
		acc.hashes["model"] = c.hash
	}
	acc.resources = append(acc.resources, Resource{
		Name: c.name,
		Type: ResourceModel,
		Hash: c.hash,
	})
}

type upscaleModelLoader struct{ name string }

func (u upscaleModelLoader) accumulate(acc *accumulator) {
	acc.upscalers = append(acc.upscalers, u.name)
}

type vaeLoader struct{ name string }

func (v vaeLoader) accumulate(acc *accumulator) {
	acc.vaes = append(acc.vaes, v.name)
}

type controlNetLoader struct{ name string }

func (c controlNetLoader) accumulate(acc *accumulator) {
	acc.controlNets = append(acc.controlNets, c.name)
}

// pickSampler prefers the first sampler that starts from an empty latent,
// which is the initial text-to-image pass rather than a refiner or upscale pass.
func pickSampler(samplers []samplerNode) (samplerNode, error) {
	if len(samplers) == 0 {
		return samplerNode{}, ErrNoSampler
	}
	for _, s := range samplers {
		if s.latentImage != nil && s.latentImage.ClassType == "EmptyLatentImage" {
			return s, nil
		}
	}
	return samplers[0], nil
}

func stringInput(n *graphapi.Node, name string) string {
	s, _ := n.String(name)
	return s
}

func hashOf(n *graphapi.Node, key string) string {
	h, _ := n.Hash(key)
	return h
}
