package modelsel

import (
	"strings"

	"github.com/Debrajkhanra88/Gaia/pkg/types"
)

const configRepo = "https://raw.githubusercontent.com/GaiaNet-AI/node-configs/main"

func choice(id, label string) types.ModelChoice {
	return types.ModelChoice{ID: id, URL: configRepo + "/" + id + "/config.json", Label: label}
}

// gpuRule maps an accelerator-name substring to a model choice. Rules are
// evaluated top to bottom, first match wins, so keep most specific first.
type gpuRule struct {
	match  string
	choice types.ModelChoice
}

// cpuRule maps a minimum core count to a model choice for hosts without an
// accelerator. Rules are ordered by descending core count.
type cpuRule struct {
	minCores int
	choice   types.ModelChoice
}

// Selector maps a hardware profile to a model configuration. The tables are
// fixed at construction; given the same profile and override it always
// returns the same choice.
type Selector struct {
	gpuRules    []gpuRule
	cpuRules    []cpuRule
	gpuFallback types.ModelChoice
	byID        map[string]types.ModelChoice
}

// New returns a Selector with the built-in ranking tables.
func New() *Selector {
	s := &Selector{
		gpuRules: []gpuRule{
			{match: "h100", choice: choice("llama-3.1-8b-instruct", "Llama 3.1 8B Instruct")},
			{match: "a100", choice: choice("llama-3.1-8b-instruct", "Llama 3.1 8B Instruct")},
			{match: "4090", choice: choice("llama-3-8b-instruct", "Llama 3 8B Instruct")},
			{match: "3090", choice: choice("llama-3-8b-instruct", "Llama 3 8B Instruct")},
			{match: "t4", choice: choice("phi-3-mini-instruct-4k", "Phi 3 Mini Instruct 4K")},
		},
		cpuRules: []cpuRule{
			{minCores: 16, choice: choice("phi-3-mini-instruct-4k", "Phi 3 Mini Instruct 4K")},
			{minCores: 8, choice: choice("qwen2-1.5b-instruct", "Qwen2 1.5B Instruct")},
			{minCores: 0, choice: choice("qwen2-0.5b-instruct", "Qwen2 0.5B Instruct")},
		},
		gpuFallback: choice("phi-3-mini-instruct-4k", "Phi 3 Mini Instruct 4K"),
	}
	s.byID = make(map[string]types.ModelChoice)
	for _, r := range s.gpuRules {
		s.byID[r.choice.ID] = r.choice
	}
	for _, r := range s.cpuRules {
		s.byID[r.choice.ID] = r.choice
	}
	return s
}

// Known reports whether id is a selectable model identifier.
func (s *Selector) Known(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Select returns the model choice for the profile. A known override wins
// unconditionally; an unknown override degrades to the computed
// recommendation rather than failing.
func (s *Selector) Select(profile types.HostProfile, override string) types.ModelChoice {
	if override != "" {
		if c, ok := s.byID[override]; ok {
			return c
		}
	}
	if profile.AcceleratorCount > 0 {
		name := strings.ToLower(profile.AcceleratorName)
		for _, r := range s.gpuRules {
			if strings.Contains(name, r.match) {
				return r.choice
			}
		}
		return s.gpuFallback
	}
	for _, r := range s.cpuRules {
		if profile.CPUCores >= r.minCores {
			return r.choice
		}
	}
	// Unreachable: the last cpu rule has minCores 0.
	return s.cpuRules[len(s.cpuRules)-1].choice
}
