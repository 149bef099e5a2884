package metadata

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/comfymeta/samplers"
)

func loadFixture(t *testing.T) Exif {
	t.Helper()
	prompt, err := os.ReadFile("testdata/txt2img_prompt.json")
	require.NoError(t, err)
	workflow, err := os.ReadFile("testdata/txt2img_workflow.json")
	require.NoError(t, err)
	return Exif{Prompt: string(prompt), Workflow: string(workflow)}
}

func float(f float64) *float64 { return &f }

func TestCanParse(t *testing.T) {
	assert.True(t, CanParse(Exif{Prompt: "{}", Workflow: "{}"}))
	assert.False(t, CanParse(Exif{Prompt: "{}"}))
	assert.False(t, CanParse(Exif{Workflow: "{}"}))
	assert.False(t, CanParse(Exif{}))
}

func TestParseFixture(t *testing.T) {
	r, err := Parse(loadFixture(t))
	require.NoError(t, err)

	assert.Equal(t, "a photo of a cat", r.Prompt)
	assert.Equal(t, "blurry", r.NegativePrompt)
	assert.Equal(t, 8.0, r.CfgScale)
	assert.Equal(t, 20, r.Steps)
	assert.Equal(t, uint64(156680208700286), r.Seed)
	assert.Equal(t, "DPM++ 2M Karras", r.Sampler)
	assert.Equal(t, "karras", r.Scheduler)
	require.NotNil(t, r.Denoise)
	assert.Equal(t, 1.0, *r.Denoise)
	assert.Equal(t, 1024, r.Width)
	assert.Equal(t, 1024, r.Height)

	assert.Equal(t, map[string]string{
		"model":          "31e35c80fc",
		"lora:pixel_art": "a1b2c3",
	}, r.Hashes)
	assert.Equal(t, []string{"sd_xl_base_1.0"}, r.Models)
	assert.Equal(t, []string{"upscale\\4x-UltraSharp.pth"}, r.Upscalers)
	assert.Equal(t, []string{"sdxl_vae.safetensors"}, r.Vaes)
	assert.Empty(t, r.ControlNets)
	assert.Equal(t, []Resource{
		{Name: "sd_xl_base_1.0", Type: ResourceModel, Hash: "31e35c80fc"},
		{Name: "pixel_art", Type: ResourceLora, Weight: float(0.8), WeightClip: float(1), Hash: "a1b2c3"},
	}, r.AdditionalResources)
	assert.Equal(t, []int{202, 404}, r.VersionIDs)
	assert.Equal(t, []int{505}, r.ModelIDs)
	assert.Equal(t, "sd_xl_base_1.0", r.Model)
	assert.Equal(t, "31e35c80fc", r.ModelHash)
}

func TestParseEndToEnd(t *testing.T) {
	prompt := `{
		"1": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "sd.safetensors"}, "ckpt_hash": "abc123"},
		"2": {"class_type": "KSampler", "inputs": {
			"seed": 42, "steps": 20, "cfg": 7, "sampler_name": "euler", "scheduler": "karras",
			"denoise": 1, "width": 512, "height": 512,
			"model": ["1", 0], "positive": ["3", 0], "negative": ["4", 0], "latent_image": ["5", 0]}},
		"3": {"class_type": "CLIPTextEncode", "inputs": {"text": "a cat", "clip": ["1", 1]}},
		"4": {"class_type": "CLIPTextEncode", "inputs": {"text": "ugly", "clip": ["1", 1]}},
		"5": {"class_type": "EmptyLatentImage", "inputs": {"batch_size": 1}}
	}`

	r, err := Parse(Exif{Prompt: prompt, Workflow: `{"nodes": []}`})
	require.NoError(t, err)

	assert.Equal(t, []string{"sd"}, r.Models)
	assert.Equal(t, map[string]string{"model": "abc123"}, r.Hashes)
	assert.Equal(t, uint64(42), r.Seed)
	assert.Equal(t, 20, r.Steps)
	assert.Equal(t, 7.0, r.CfgScale)
	// there is no euler_karras entry, so the plain name is translated
	assert.Equal(t, "Euler", r.Sampler)
	assert.Equal(t, "a cat", r.Prompt)
	assert.Equal(t, "ugly", r.NegativePrompt)
	// the latent has no size, the sampler's own inputs are used
	assert.Equal(t, 512, r.Width)
	assert.Equal(t, 512, r.Height)
	assert.Equal(t, "sd", r.Model)
	assert.Equal(t, "abc123", r.ModelHash)
	assert.Empty(t, r.VersionIDs)
	assert.Empty(t, r.ModelIDs)
}

func TestParseUnknownSamplerNameUnchanged(t *testing.T) {
	tbl := samplers.MustNewTable([]samplers.Entry{{Name: "DDIM", Aliases: []string{"ddim"}}})
	e := NewExtractor(WithSamplerTable(tbl))

	prompt := `{"1": {"class_type": "KSampler", "inputs": {"seed": 1, "steps": 2, "cfg": 3, "sampler_name": "euler", "scheduler": "karras"}}}`
	r, err := e.Parse(Exif{Prompt: prompt, Workflow: "{}"})
	require.NoError(t, err)
	assert.Equal(t, "euler", r.Sampler)
}

func TestParseKSamplerAdvanced(t *testing.T) {
	prompt := `{
		"10": {"class_type": "KSamplerAdvanced", "inputs": {
			"add_noise": "enable", "noise_seed": 987654321, "steps": ["11", 0], "cfg": ["12", 0],
			"sampler_name": "euler_ancestral", "scheduler": "normal",
			"start_at_step": 0, "end_at_step": 10000, "return_with_leftover_noise": "disable",
			"positive": ["13", 0], "negative": ["14", 0], "latent_image": ["15", 0]}},
		"11": {"class_type": "PrimitiveInt", "inputs": {"Value": 30}},
		"12": {"class_type": "PrimitiveFloat", "inputs": {"Value": 6.5}},
		"13": {"class_type": "CLIPTextEncodeSDXL", "inputs": {"text_g": "a cat", "text_l": "wide shot"}},
		"14": {"class_type": "CLIPTextEncodeSDXL", "inputs": {"text_g": "lowres", "text_l": "lowres"}},
		"15": {"class_type": "EmptyLatentImage", "inputs": {"width": 832, "height": 1216, "batch_size": 1}}
	}`

	r, err := Parse(Exif{Prompt: prompt, Workflow: "{}"})
	require.NoError(t, err)
	assert.Equal(t, uint64(987654321), r.Seed)
	assert.Equal(t, 30, r.Steps)
	assert.Equal(t, 6.5, r.CfgScale)
	assert.Equal(t, "Euler a", r.Sampler)
	assert.Nil(t, r.Denoise)
	assert.Equal(t, "a cat, wide shot", r.Prompt)
	assert.Equal(t, "lowres", r.NegativePrompt)
	assert.Equal(t, 832, r.Width)
	assert.Equal(t, 1216, r.Height)
}

func TestParseControlNetApplyPrompt(t *testing.T) {
	prompt := `{
		"1": {"class_type": "KSampler", "inputs": {"seed": 1, "steps": 20, "cfg": 7,
			"sampler_name": "euler", "scheduler": "normal", "denoise": 1,
			"positive": ["2", 0], "negative": ["4", 0], "latent_image": ["6", 0]}},
		"2": {"class_type": "ControlNetApply", "inputs": {"conditioning": ["3", 0], "control_net": ["5", 0], "image": ["7", 0], "strength": 1}},
		"3": {"class_type": "CLIPTextEncode", "inputs": {"text": "a dancer"}},
		"4": {"class_type": "CLIPTextEncode", "inputs": {"text": ""}},
		"5": {"class_type": "ControlNetLoader", "inputs": {"control_net_name": "control_openpose.pth"}},
		"6": {"class_type": "EmptyLatentImage", "inputs": {"width": 512, "height": 768}},
		"7": {"class_type": "LoadImage", "inputs": {"image": "pose.png"}}
	}`

	r, err := Parse(Exif{Prompt: prompt, Workflow: "{}"})
	require.NoError(t, err)
	assert.Equal(t, "a dancer", r.Prompt)
	assert.Equal(t, "", r.NegativePrompt)
	assert.Equal(t, []string{"control_openpose.pth"}, r.ControlNets)
	assert.Empty(t, r.Models)
	assert.Empty(t, r.Model)
}

func TestParseControlNetApplyIsNotRecursive(t *testing.T) {
	// the nested conditioning node's text is read directly, a further
	// indirection yields nothing
	prompt := `{
		"1": {"class_type": "KSampler", "inputs": {"positive": ["2", 0], "latent_image": ["5", 0]}},
		"2": {"class_type": "ControlNetApply", "inputs": {"conditioning": ["3", 0]}},
		"3": {"class_type": "CLIPTextEncode", "inputs": {"text": ["4", 0]}},
		"4": {"class_type": "StringConstant", "inputs": {"text": "hidden"}},
		"5": {"class_type": "EmptyLatentImage", "inputs": {}}
	}`

	r, err := Parse(Exif{Prompt: prompt, Workflow: "{}"})
	require.NoError(t, err)
	assert.Equal(t, "", r.Prompt)
}

func TestParseSamplerPreference(t *testing.T) {
	prompt := `{
		"1": {"class_type": "KSampler", "inputs": {"seed": 1, "latent_image": ["3", 0]}},
		"2": {"class_type": "KSampler", "inputs": {"seed": 2, "latent_image": ["4", 0]}},
		"3": {"class_type": "LatentUpscale", "inputs": {"width": 2048, "height": 2048}},
		"4": {"class_type": "EmptyLatentImage", "inputs": {"width": 1024, "height": 1024}}
	}`
	r, err := Parse(Exif{Prompt: prompt, Workflow: "{}"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), r.Seed)
	assert.Equal(t, 1024, r.Width)

	// without an empty latent the first sampler in document order wins
	prompt = `{
		"9": {"class_type": "KSampler", "inputs": {"seed": 9, "latent_image": ["3", 0]}},
		"1": {"class_type": "KSampler", "inputs": {"seed": 1}},
		"3": {"class_type": "VAEEncode", "inputs": {}}
	}`
	r, err = Parse(Exif{Prompt: prompt, Workflow: "{}"})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), r.Seed)
}

func TestParseLoraStrengthThreshold(t *testing.T) {
	parse := func(strength string) *Record {
		prompt := `{
			"1": {"class_type": "LoraLoader", "inputs": {"lora_name": "loras\\detail.safetensors", "strength_model": ` + strength + `, "strength_clip": 1}, "lora_hash": "ff00"},
			"2": {"class_type": "KSampler", "inputs": {"seed": 1}}
		}`
		r, err := Parse(Exif{Prompt: prompt, Workflow: "{}"})
		require.NoError(t, err)
		return r
	}

	for _, s := range []string{"0.0005", "-0.0005", "0"} {
		r := parse(s)
		assert.Empty(t, r.AdditionalResources, s)
		assert.Empty(t, r.Hashes, s)
	}

	r := parse("0.5")
	require.Len(t, r.AdditionalResources, 1)
	assert.Equal(t, Resource{Name: "detail", Type: ResourceLora, Weight: float(0.5), WeightClip: float(1), Hash: "ff00"}, r.AdditionalResources[0])
	assert.Equal(t, map[string]string{"lora:detail": "ff00"}, r.Hashes)

	r = parse("-0.5")
	assert.Len(t, r.AdditionalResources, 1)
}

func TestParseModelHashPrecedence(t *testing.T) {
	prompt := `{
		"1": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "first.ckpt"}, "ckpt_hash": "aaa"},
		"2": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "second.safetensors", "ckpt_hash": "bbb"}},
		"3": {"class_type": "KSampler", "inputs": {"seed": 1}}
	}`
	r, err := Parse(Exif{Prompt: prompt, Workflow: "{}"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"model": "aaa"}, r.Hashes)
	assert.Equal(t, []string{"first", "second"}, r.Models)
	require.Len(t, r.AdditionalResources, 2)
	assert.Equal(t, "bbb", r.AdditionalResources[1].Hash)
	assert.Equal(t, "first", r.Model)
	assert.Equal(t, "aaa", r.ModelHash)
}

func TestParseErrors(t *testing.T) {
	t.Run("malformed prompt", func(t *testing.T) {
		_, err := Parse(Exif{Prompt: `{"1": {`, Workflow: "{}"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode prompt")
	})
	t.Run("bare NaN is not patched", func(t *testing.T) {
		_, err := Parse(Exif{Prompt: `{"1": {"class_type": "KSampler", "inputs": {"cfg": NaN}}}`, Workflow: "{}"})
		require.Error(t, err)
	})
	t.Run("prompt is not an object", func(t *testing.T) {
		_, err := Parse(Exif{Prompt: `[1, 2]`, Workflow: "{}"})
		require.Error(t, err)
	})
	t.Run("malformed workflow", func(t *testing.T) {
		_, err := Parse(Exif{Prompt: `{"1": {"class_type": "KSampler", "inputs": {}}}`, Workflow: "{nodes"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode workflow")
	})
	t.Run("no sampler", func(t *testing.T) {
		_, err := Parse(Exif{Prompt: `{"1": {"class_type": "CheckpointLoaderSimple", "inputs": {"ckpt_name": "a.ckpt"}}}`, Workflow: "{}"})
		assert.ErrorIs(t, err, ErrNoSampler)
	})
}

func TestParseCyclicTextChain(t *testing.T) {
	prompt := `{
		"1": {"class_type": "KSampler", "inputs": {"positive": ["2", 0]}},
		"2": {"class_type": "TextLoop", "inputs": {"text": ["3", 0]}},
		"3": {"class_type": "TextLoop", "inputs": {"text": ["2", 0]}}
	}`
	r, err := Parse(Exif{Prompt: prompt, Workflow: "{}"})
	require.NoError(t, err)
	assert.Equal(t, "", r.Prompt)
}

func TestRecordJSONShape(t *testing.T) {
	r, err := Parse(loadFixture(t))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "sd_xl_base_1.0", m["Model"])
	assert.Equal(t, "31e35c80fc", m["Model hash"])
	assert.IsType(t, "", m["comfy"])
	assert.Contains(t, m, "additionalResources")
	assert.Contains(t, m, "versionIds")
}
