// Package aggregator merges signals that describe the same entity so repeated
// evidence reinforces a finding without multiplying its score.
package aggregator

import (
	"github.com/raysh454/phishscan/internal/model"
)

// Options tune the merge policy.
type Options struct {
	// WeightCap is the ceiling a merge may raise an entity's weight to.
	WeightCap float64 `yaml:"weight_cap" json:"weight_cap"`

	// Damping scales every additional signal's weight before it is added.
	Damping float64 `yaml:"damping" json:"damping"`
}

// DefaultOptions returns the standard cap of 40 with half-weight reinforcement.
func DefaultOptions() Options {
	return Options{WeightCap: 40, Damping: 0.5}
}

// EntityKey returns the aggregation identity of s: its link, else its IP,
// else its rule id. Links are compared as exact strings.
func EntityKey(s model.Signal) string {
	if link := s.Link(); link != "" {
		return "link:" + link
	}
	if ip := s.IP(); ip != "" {
		return "ip:" + ip
	}
	return "id:" + s.ID
}

// Aggregate merges signals by entity key. The first signal seen for a key is
// the base record; later ones raise its weight by Damping*weight up to
// WeightCap, escalate its severity and append their id to evidence.sources.
// Output follows first-seen order. The input slice and its signals are never
// modified.
func Aggregate(signals []model.Signal, opts Options) []model.Signal {
	if len(signals) == 0 {
		return []model.Signal{}
	}

	index := make(map[string]int, len(signals))
	out := make([]model.Signal, 0, len(signals))

	for _, s := range signals {
		key := EntityKey(s)
		i, seen := index[key]
		if !seen {
			base := s.Clone()
			if base.Evidence == nil {
				base.Evidence = make(map[string]any, 1)
			}
			base.Evidence[model.EvidenceSources] = []string{s.ID}
			index[key] = len(out)
			out = append(out, base)
			continue
		}

		acc := &out[i]
		acc.Weight = mergeWeight(acc.Weight, s.Weight, opts)
		acc.Severity = model.MaxSeverity(acc.Severity, s.Severity)
		acc.Evidence[model.EvidenceSources] = append(acc.Sources(), s.ID)
	}

	return out
}

// mergeWeight never lowers the accumulated weight: a base signal that already
// exceeds the cap keeps its own weight.
func mergeWeight(existing, incoming float64, opts Options) float64 {
	if incoming < 0 {
		incoming = 0
	}
	merged := existing + incoming*opts.Damping
	if merged > opts.WeightCap {
		merged = opts.WeightCap
	}
	if merged < existing {
		return existing
	}
	return merged
}
