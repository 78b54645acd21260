package scorer

import (
	"math"
	"sort"
	"strings"

	"github.com/raysh454/phishscan/internal/model"
)

// NoIndicatorsSummary is the summary of a scan without any aggregated signal.
const NoIndicatorsSummary = "No suspicious indicators found."

// Options hold the scoring constants.
type Options struct {
	// SeverityFloor is the minimum raw score when any signal is HIGH.
	SeverityFloor float64 `yaml:"severity_floor" json:"severity_floor"`

	DangerousThreshold  int `yaml:"dangerous_threshold" json:"dangerous_threshold"`
	SuspiciousThreshold int `yaml:"suspicious_threshold" json:"suspicious_threshold"`

	// SummaryTopK is how many labels the summary lists.
	SummaryTopK int `yaml:"summary_top_k" json:"summary_top_k"`
}

func DefaultOptions() Options {
	return Options{
		SeverityFloor:       40,
		DangerousThreshold:  60,
		SuspiciousThreshold: 25,
		SummaryTopK:         3,
	}
}

// Score turns aggregated signals into a ScanResult: sum the weights, lift the
// sum to SeverityFloor if anything is HIGH, clamp to [0, 100], then map the
// score to a verdict and summarize the strongest signals.
func Score(signals []model.Signal, opts Options) *model.ScanResult {
	raw := 0.0
	hasHigh := false
	for _, s := range signals {
		raw += s.Weight
		if s.Severity == model.SeverityHigh {
			hasHigh = true
		}
	}
	if hasHigh && raw < opts.SeverityFloor {
		raw = opts.SeverityFloor
	}

	score := int(math.Round(clamp(raw, 0, 100)))
	verdict := VerdictFor(score, opts)

	if signals == nil {
		signals = []model.Signal{}
	}
	return &model.ScanResult{
		Score:   score,
		Verdict: verdict,
		Summary: summarize(signals, verdict, opts.SummaryTopK),
		Signals: signals,
	}
}

// VerdictFor maps a final score to its verdict.
func VerdictFor(score int, opts Options) model.Verdict {
	switch {
	case score >= opts.DangerousThreshold:
		return model.VerdictDangerous
	case score >= opts.SuspiciousThreshold:
		return model.VerdictSuspicious
	default:
		return model.VerdictSafe
	}
}

func summarize(signals []model.Signal, verdict model.Verdict, topK int) string {
	if len(signals) == 0 {
		return NoIndicatorsSummary
	}

	ranked := make([]model.Signal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Weight > ranked[j].Weight
	})
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	labels := make([]string, 0, len(ranked))
	for _, s := range ranked {
		label := s.Label
		if label == "" {
			label = s.ID
		}
		labels = append(labels, label)
	}
	return string(verdict) + " based on: " + strings.Join(labels, "; ")
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
