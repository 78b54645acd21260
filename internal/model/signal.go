package model

import (
	"fmt"
	"strings"
)

// Severity is a totally ordered alarm level: LOW < MEDIUM < HIGH.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity accepts "low", "medium" and "high" in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	if s < SeverityLow || s > SeverityHigh {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MaxSeverity returns the more alarming of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// Well-known evidence keys.
const (
	EvidenceLink    = "link"
	EvidenceIP      = "ip"
	EvidenceSources = "sources"
)

// Signal is one unit of evidence produced by an evaluator. Evaluators hand out
// Signals by value and never touch them again; code that needs to change a
// Signal works on a Clone.
type Signal struct {
	ID       string         `json:"id"`
	Label    string         `json:"label"`
	Severity Severity       `json:"severity"`
	Weight   float64        `json:"weight"`
	Evidence map[string]any `json:"evidence,omitempty"`
}

// Clone returns a copy whose evidence map (and sources list) can be modified
// without affecting s.
func (s Signal) Clone() Signal {
	out := s
	if s.Evidence != nil {
		out.Evidence = make(map[string]any, len(s.Evidence))
		for k, v := range s.Evidence {
			if srcs, ok := v.([]string); ok {
				v = append([]string(nil), srcs...)
			}
			out.Evidence[k] = v
		}
	}
	return out
}

// Link returns evidence.link when it is a non-empty string.
func (s Signal) Link() string { return s.evidenceString(EvidenceLink) }

// IP returns evidence.ip when it is a non-empty string.
func (s Signal) IP() string { return s.evidenceString(EvidenceIP) }

// Sources returns the ids of the signals merged into s, if aggregated.
func (s Signal) Sources() []string {
	if s.Evidence == nil {
		return nil
	}
	switch v := s.Evidence[EvidenceSources].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func (s Signal) evidenceString(key string) string {
	if s.Evidence == nil {
		return ""
	}
	str, _ := s.Evidence[key].(string)
	return str
}
