package aisdk

import (
	"slices"
	"strings"
)

// AcceptsImages reports whether the model takes image input. Models that do
// not list their input modalities are assumed to.
func (m *ModelInfo) AcceptsImages() bool {
	if m == nil || m.Architecture == nil || len(m.Architecture.InputModalities) == 0 {
		return true
	}
	return slices.Contains(m.Architecture.InputModalities, "image")
}

// FilterModels returns the models whose id or name contains query, ignoring
// case. An empty query keeps every model.
func FilterModels(models []*ModelInfo, query string) []*ModelInfo {
	if query == "" {
		return models
	}
	q := strings.ToLower(query)
	var out []*ModelInfo
	for _, m := range models {
		if strings.Contains(strings.ToLower(m.ID), q) || strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}
