package rules

import (
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/raysh454/phishscan/internal/model"
)

var embeddedAddressRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@([A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)+)`)

var freemailDomains = map[string]struct{}{
	"gmail.com": {}, "googlemail.com": {}, "yahoo.com": {}, "outlook.com": {}, "hotmail.com": {},
	"live.com": {}, "aol.com": {}, "proton.me": {}, "protonmail.com": {}, "gmx.com": {},
	"mail.com": {}, "yandex.com": {}, "icloud.com": {}, "zoho.com": {},
}

var impersonatedBrands = []string{
	"paypal", "microsoft", "office 365", "apple", "amazon", "netflix", "docusign",
	"dhl", "fedex", "wells fargo", "chase", "bank", "security team",
}

type address struct {
	name   string
	addr   string
	domain string
}

// parseAddress accepts RFC 5322 addresses and falls back to the bare
// "local@domain" form when the header is not well formed.
func parseAddress(raw string) address {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return address{}
	}
	var a address
	if parsed, err := mail.ParseAddress(raw); err == nil {
		a.name = parsed.Name
		a.addr = parsed.Address
	} else if m := embeddedAddressRe.FindString(raw); m != "" {
		a.addr = m
		a.name = strings.TrimSpace(strings.Replace(raw, m, "", 1))
		a.name = strings.Trim(a.name, `<>" `)
	} else {
		return address{}
	}
	if at := strings.LastIndex(a.addr, "@"); at >= 0 {
		a.domain = strings.ToLower(strings.TrimSuffix(a.addr[at+1:], "."))
	}
	return a
}

// registrableDomain returns the eTLD+1 of host, or host itself when the
// public suffix list cannot decide.
func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

func hasPunycodeLabel(host string) bool {
	for _, label := range strings.Split(strings.ToLower(host), ".") {
		if strings.HasPrefix(label, "xn--") {
			return true
		}
	}
	return false
}

func decodeIDN(host string) string {
	if u, err := idna.ToUnicode(host); err == nil {
		return u
	}
	return host
}

// EvaluateSender inspects the From and Reply-To headers.
func EvaluateSender(c Catalog, p *model.Payload) []model.Signal {
	if p == nil {
		return nil
	}
	from := parseAddress(p.From)
	if from.domain == "" {
		return nil
	}

	var out []model.Signal
	fromBase := registrableDomain(from.domain)

	if replyTo := parseAddress(p.ReplyTo); replyTo.domain != "" {
		if registrableDomain(replyTo.domain) != fromBase {
			out = append(out, c.signal(SenderReplyToMismatch, map[string]any{
				"fromDomain":    from.domain,
				"replyToDomain": replyTo.domain,
			}))
		}
	}

	if m := embeddedAddressRe.FindStringSubmatch(from.name); m != nil {
		if registrableDomain(m[1]) != fromBase {
			out = append(out, c.signal(SenderDisplayNameSpoof, map[string]any{
				"displayName": from.name,
				"fromDomain":  from.domain,
			}))
		}
	}

	if _, free := freemailDomains[fromBase]; free {
		name := strings.ToLower(from.name)
		for _, brand := range impersonatedBrands {
			if name != "" && strings.Contains(name, brand) {
				out = append(out, c.signal(SenderBrandFreemail, map[string]any{
					"brand":      brand,
					"fromDomain": from.domain,
				}))
				break
			}
		}
	}

	if hasPunycodeLabel(from.domain) {
		out = append(out, c.signal(SenderPunycodeDomain, map[string]any{
			"fromDomain": from.domain,
			"unicode":    decodeIDN(from.domain),
		}))
	}

	return out
}
