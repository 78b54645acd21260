package demoserver

import (
	"net/url"
	"strings"

	"github.com/raysh454/phishscan/internal/enrichment"
)

// VerdictRule is the canned reputation of every URL on Host or its subdomains.
type VerdictRule struct {
	Host        string             `json:"host"`
	Description string             `json:"description"`
	Verdict     enrichment.Verdict `json:"verdict"`
}

// DefaultVerdicts returns the demo catalogue.
func DefaultVerdicts() []VerdictRule {
	return []VerdictRule{
		{
			Host:        "evil.test",
			Description: "Credential phishing kit imitating a payment provider",
			Verdict:     enrichment.Verdict{Malicious: true, Score: 100, Categories: []string{"phishing"}, Tags: []string{"paypal"}},
		},
		{
			Host:        "bit.ly",
			Description: "Shortener; destination unknown",
			Verdict:     enrichment.Verdict{Score: 10, Tags: []string{"shortener"}},
		},
		{
			Host:        "login-update.xyz",
			Description: "Newly registered lookalike login domain",
			Verdict:     enrichment.Verdict{Score: 45, Categories: []string{"suspicious"}},
		},
		{
			Host:        "example.com",
			Description: "Well known clean domain",
			Verdict:     enrichment.Verdict{},
		},
	}
}

// lookup finds the rule whose host matches rawURL most specifically. Unknown
// hosts are clean.
func lookup(rules map[string]VerdictRule, rawURL string) enrichment.Verdict {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return enrichment.Verdict{}
	}
	host := strings.ToLower(u.Hostname())
	for {
		if rule, ok := rules[host]; ok {
			return rule.Verdict
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			return enrichment.Verdict{}
		}
		host = host[dot+1:]
	}
}
