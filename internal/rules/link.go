package rules

import (
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"github.com/raysh454/phishscan/internal/model"
)

var shortenerHosts = map[string]struct{}{
	"bit.ly": {}, "tinyurl.com": {}, "t.co": {}, "goo.gl": {}, "ow.ly": {}, "is.gd": {},
	"buff.ly": {}, "rebrand.ly": {}, "cutt.ly": {}, "shorturl.at": {}, "tiny.cc": {},
	"rb.gy": {}, "s.id": {}, "t.ly": {},
}

var abusedTLDs = map[string]struct{}{
	"zip": {}, "mov": {}, "top": {}, "xyz": {}, "click": {}, "country": {}, "gq": {},
	"tk": {}, "ml": {}, "cf": {}, "ga": {}, "work": {}, "rest": {}, "support": {},
}

// anchor is an <a> element of the HTML body: where it goes and what it shows.
type anchor struct {
	href string
	text string
}

// extractAnchors returns the absolute http(s) anchors of an HTML body in
// document order. Unparseable markup yields no anchors.
func extractAnchors(body string) []anchor {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var out []anchor
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		lower := strings.ToLower(href)
		if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
			return
		}
		out = append(out, anchor{href: href, text: strings.TrimSpace(sel.Text())})
	})
	return out
}

// CollectLinks returns the payload links followed by any HTML body link not
// already listed, without duplicates, in first-seen order.
func CollectLinks(p *model.Payload) []string {
	if p == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(p.Links))
	var out []string
	add := func(l string) {
		if _, ok := seen[l]; ok || l == "" {
			return
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	for _, l := range p.Links {
		add(l)
	}
	for _, a := range extractAnchors(p.BodyHTML) {
		add(a.href)
	}
	return out
}

// displayedHost returns the host an anchor's visible text claims to go to,
// or "" when the text does not look like a URL or domain.
func displayedHost(text string) string {
	text = strings.TrimSpace(text)
	if text == "" || strings.ContainsAny(text, " \t\n") || !strings.Contains(text, ".") {
		return ""
	}
	if !strings.Contains(text, "://") {
		text = "http://" + text
	}
	u, err := url.Parse(text)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if _, icann := publicsuffix.PublicSuffix(host); !icann && net.ParseIP(host) == nil {
		return ""
	}
	return host
}

// EvaluateLinks inspects every link of the payload (and of its HTML body).
// Within one link the heaviest signal comes first so it becomes the entity's
// base record when aggregated.
func EvaluateLinks(c Catalog, p *model.Payload) []model.Signal {
	if p == nil {
		return nil
	}

	mismatches := map[string]string{}
	for _, a := range extractAnchors(p.BodyHTML) {
		shown := displayedHost(a.text)
		if shown == "" {
			continue
		}
		u, err := url.Parse(a.href)
		if err != nil || u.Hostname() == "" {
			continue
		}
		if registrableDomain(shown) != registrableDomain(u.Hostname()) {
			if _, ok := mismatches[a.href]; !ok {
				mismatches[a.href] = a.text
			}
		}
	}

	var out []model.Signal
	for _, link := range CollectLinks(p) {
		out = append(out, linkSignals(c, link, mismatches[link])...)
	}
	return out
}

func linkSignals(c Catalog, link, shownText string) []model.Signal {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Hostname() == "" {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	ev := func(extra ...any) map[string]any {
		m := map[string]any{model.EvidenceLink: link}
		for i := 0; i+1 < len(extra); i += 2 {
			m[extra[i].(string)] = extra[i+1]
		}
		return m
	}

	var out []model.Signal
	if shownText != "" {
		out = append(out, c.signal(LinkTextMismatch, ev("displayedText", shownText)))
	}
	if ip := net.ParseIP(host); ip != nil {
		out = append(out, c.signal(LinkIPHost, ev(model.EvidenceIP, ip.String())))
	}
	if _, ok := shortenerHosts[strings.TrimPrefix(host, "www.")]; ok {
		out = append(out, c.signal(LinkShortener, ev("host", host)))
	}
	if hasPunycodeLabel(host) {
		out = append(out, c.signal(LinkPunycode, ev("host", host, "unicode", decodeIDN(host))))
	}
	if u.User != nil {
		out = append(out, c.signal(LinkUserinfo, ev("host", host)))
	}
	if strings.EqualFold(u.Scheme, "http") {
		out = append(out, c.signal(LinkHTTPNotHTTPS, ev()))
	}
	if net.ParseIP(host) == nil {
		if suffix, _ := publicsuffix.PublicSuffix(host); suffix != "" {
			tld := suffix[strings.LastIndex(suffix, ".")+1:]
			if _, ok := abusedTLDs[tld]; ok {
				out = append(out, c.signal(LinkSuspiciousTLD, ev("tld", tld)))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}
