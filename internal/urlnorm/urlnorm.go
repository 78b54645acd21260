// Package urlnorm rewrites links into the form sent to third-party
// reputation services.
package urlnorm

import (
	"errors"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyURL    = errors.New("urlnorm: empty url")
	ErrMissingHost = errors.New("urlnorm: missing host")
)

// Mailing list and campaign parameters that identify the recipient.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"gclid": {}, "fbclid": {}, "mc_cid": {}, "mc_eid": {},
	"mkt_tok": {}, "_hsenc": {}, "_hsmi": {}, "oly_enc_id": {}, "vero_id": {},
}

// Normalize returns raw with a lowercased punycode host, default ports and
// credentials removed, a cleaned path, no fragment, recipient tracking
// parameters dropped and the query sorted. Schemeless input is rejected.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", ErrMissingHost
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		host = ascii
	}
	switch port := u.Port(); {
	case port == "", u.Scheme == "http" && port == "80", u.Scheme == "https" && port == "443":
		u.Host = host
	default:
		u.Host = net.JoinHostPort(host, port)
	}
	u.User = nil

	if u.Path != "" {
		cleaned := path.Clean(u.Path)
		if strings.HasSuffix(u.Path, "/") && cleaned != "/" {
			cleaned += "/"
		}
		u.Path = cleaned
		u.RawPath = ""
	}
	u.Fragment = ""
	u.RawFragment = ""

	q := u.Query()
	for k := range q {
		if _, ok := trackingParams[strings.ToLower(k)]; ok {
			q.Del(k)
		}
	}
	for _, vs := range q {
		sort.Strings(vs)
	}
	// Encode sorts by key.
	u.RawQuery = q.Encode()
	u.ForceQuery = false

	return u.String(), nil
}

// NormalizeOrRaw is Normalize falling back to the trimmed input.
func NormalizeOrRaw(raw string) string {
	if n, err := Normalize(raw); err == nil {
		return n
	}
	return strings.TrimSpace(raw)
}
