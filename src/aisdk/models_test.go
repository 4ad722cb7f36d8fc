package aisdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcceptsImages(t *testing.T) {
	var missing *ModelInfo
	assert.True(t, missing.AcceptsImages())
	assert.True(t, (&ModelInfo{ID: "a"}).AcceptsImages())
	assert.True(t, (&ModelInfo{Architecture: &Architecture{InputModalities: []string{"text", "image"}}}).AcceptsImages())
	assert.False(t, (&ModelInfo{Architecture: &Architecture{InputModalities: []string{"text"}}}).AcceptsImages())
}

func TestFilterModels(t *testing.T) {
	models := []*ModelInfo{
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o mini"},
		{ID: "google/gemini-2.5-flash", Name: "Gemini 2.5 Flash"},
	}
	assert.Len(t, FilterModels(models, ""), 2)

	got := FilterModels(models, "GEMINI")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "google/gemini-2.5-flash", got[0].ID)
	}

	got = FilterModels(models, "4o mini")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "openai/gpt-4o-mini", got[0].ID)
	}
	assert.Empty(t, FilterModels(models, "claude"))
}
