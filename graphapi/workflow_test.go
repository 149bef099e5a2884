package graphapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestWorkflowExtra(t *testing.T) {
	w, err := NewWorkflowFromJSON([]byte(`{
		"nodes": [],
		"extra": {
			"ckpt_airs": ["1@2", 3, null, "4"],
			"ds": {"scale": 1.5},
			"lora_airs": "not a list"
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"1@2", "4"}, w.ExtraStrings("ckpt_airs"))
	assert.Nil(t, w.ExtraStrings("lora_airs"))
	assert.Nil(t, w.ExtraStrings("embedding_airs"))
	assert.Equal(t, 1.5, w.Extra("ds.scale").Float())
	assert.False(t, w.Extra("missing").Exists())
	assert.Contains(t, string(w.Raw()), `"nodes"`)
}

func TestWorkflowWithoutExtra(t *testing.T) {
	for _, doc := range []string{`{}`, `{"extra": null}`, `[]`, `"text"`} {
		w, err := NewWorkflowFromJSON([]byte(doc))
		require.NoError(t, err, doc)
		assert.Nil(t, w.ExtraStrings("ckpt_airs"), doc)
		assert.Equal(t, gjson.Null, w.Extra("ckpt_airs").Type, doc)
	}
}

func TestWorkflowRejectsInvalidJSON(t *testing.T) {
	for _, doc := range []string{``, `{`, `{"a": NaN}`, `not json`} {
		_, err := NewWorkflowFromJSON([]byte(doc))
		assert.ErrorIs(t, err, errWorkflowInvalid, doc)
	}
}

func TestPromptWorkflow(t *testing.T) {
	pw, err := NewPromptWorkflow([]byte(`{ "1": {"class_type": "A"} }`), []byte("{\n  \"nodes\": [ ]\n}"))
	require.NoError(t, err)
	assert.Equal(t, `{"1":{"class_type":"A"}}`, string(pw.Prompt))
	assert.Equal(t, `{"nodes":[]}`, string(pw.Workflow))
	assert.True(t, pw.HasWorkflow())

	out, err := pw.ToJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"prompt": {"1": {"class_type": "A"}}, "workflow": {"nodes": []}}`, out)
}

func TestPromptWorkflowWithoutWorkflow(t *testing.T) {
	for _, workflow := range []string{"", "  ", "null"} {
		pw, err := NewPromptWorkflow([]byte(`{}`), []byte(workflow))
		require.NoError(t, err)
		assert.False(t, pw.HasWorkflow(), "%q", workflow)
		assert.Equal(t, "null", string(pw.Workflow))
	}

	var pw *PromptWorkflow
	assert.False(t, pw.HasWorkflow())

	_, err := NewPromptWorkflow([]byte(`{`), nil)
	assert.Error(t, err)
}
