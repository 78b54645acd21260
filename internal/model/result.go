package model

// Verdict is the three-level classification derived from the final score.
type Verdict string

const (
	VerdictSafe       Verdict = "SAFE"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictDangerous  Verdict = "DANGEROUS"
)

// ScanResult is the engine output for one scan request. It is built once and
// never changed afterwards.
type ScanResult struct {
	// Score is the clamped risk score in [0, 100].
	Score int `json:"score"`

	Verdict Verdict `json:"verdict"`

	// Summary names the strongest findings in plain text.
	Summary string `json:"summary"`

	// Signals are the aggregated signals, one per entity.
	Signals []Signal `json:"signals"`
}
