// Package rules holds the heuristic rule evaluators. Every evaluator is a pure
// function of the payload: same input, same signals, no I/O.
package rules

import (
	"sort"

	"github.com/raysh454/phishscan/internal/evaluator"
	"github.com/raysh454/phishscan/internal/model"
)

// Rule defines a single heuristic check and its score contribution.
type Rule struct {
	ID       string
	Label    string
	Severity model.Severity
	Weight   float64
}

// Catalog indexes rules by id.
type Catalog map[string]Rule

// Rule ids.
const (
	SenderReplyToMismatch  = "SENDER_REPLYTO_MISMATCH"
	SenderDisplayNameSpoof = "SENDER_DISPLAY_NAME_SPOOF"
	SenderBrandFreemail    = "SENDER_BRAND_FREEMAIL"
	SenderPunycodeDomain   = "SENDER_PUNYCODE_DOMAIN"

	ContentUrgency           = "CONTENT_URGENCY"
	ContentCredentialRequest = "CONTENT_CREDENTIAL_REQUEST"
	ContentPaymentRequest    = "CONTENT_PAYMENT_REQUEST"
	ContentGenericGreeting   = "CONTENT_GENERIC_GREETING"
	ContentAlarmingSubject   = "CONTENT_ALARMING_SUBJECT"

	LinkShortener     = "LINK_SHORTENER"
	LinkHTTPNotHTTPS  = "LINK_HTTP_NOT_HTTPS"
	LinkIPHost        = "LINK_IP_HOST"
	LinkPunycode      = "LINK_PUNYCODE"
	LinkUserinfo      = "LINK_USERINFO"
	LinkSuspiciousTLD = "LINK_SUSPICIOUS_TLD"
	LinkTextMismatch  = "LINK_TEXT_MISMATCH"

	AttachmentExecutable      = "ATTACHMENT_EXECUTABLE"
	AttachmentDoubleExtension = "ATTACHMENT_DOUBLE_EXTENSION"
	AttachmentMacroDocument   = "ATTACHMENT_MACRO_DOCUMENT"
	AttachmentArchive         = "ATTACHMENT_ARCHIVE"
	AttachmentMimeMismatch    = "ATTACHMENT_MIME_MISMATCH"
)

var defaultRules = []Rule{
	{SenderReplyToMismatch, "Reply-To domain differs from sender domain", model.SeverityMedium, 15},
	{SenderDisplayNameSpoof, "Display name contains a different email address", model.SeverityHigh, 25},
	{SenderBrandFreemail, "Brand name sent from a free webmail account", model.SeverityMedium, 15},
	{SenderPunycodeDomain, "Sender domain uses punycode", model.SeverityMedium, 15},

	{ContentUrgency, "Urgent or threatening language", model.SeverityMedium, 10},
	{ContentCredentialRequest, "Asks for credentials or account verification", model.SeverityHigh, 20},
	{ContentPaymentRequest, "Requests payment or money transfer", model.SeverityMedium, 12},
	{ContentGenericGreeting, "Generic greeting instead of recipient name", model.SeverityLow, 4},
	{ContentAlarmingSubject, "Alarming subject line", model.SeverityLow, 6},

	{LinkShortener, "Link uses a URL shortener", model.SeverityMedium, 18},
	{LinkHTTPNotHTTPS, "Link is not HTTPS", model.SeverityLow, 8},
	{LinkIPHost, "Link points to a raw IP address", model.SeverityMedium, 20},
	{LinkPunycode, "Link host uses punycode", model.SeverityMedium, 15},
	{LinkUserinfo, "Link hides its destination behind user info", model.SeverityMedium, 15},
	{LinkSuspiciousTLD, "Link uses a frequently abused top-level domain", model.SeverityLow, 8},
	{LinkTextMismatch, "Link text shows a different domain than its target", model.SeverityHigh, 25},

	{AttachmentExecutable, "Executable attachment", model.SeverityHigh, 30},
	{AttachmentDoubleExtension, "Attachment hides its real extension", model.SeverityHigh, 25},
	{AttachmentMacroDocument, "Macro-enabled Office document", model.SeverityMedium, 15},
	{AttachmentArchive, "Archive or disk image attachment", model.SeverityLow, 8},
	{AttachmentMimeMismatch, "Attachment type does not match its extension", model.SeverityMedium, 12},
}

// DefaultCatalog returns a fresh copy of the built-in rules.
func DefaultCatalog() Catalog {
	c := make(Catalog, len(defaultRules))
	for _, r := range defaultRules {
		c[r.ID] = r
	}
	return c
}

// WithWeights returns a copy of c whose weights are replaced by the entries of
// weights. Unknown ids and negative weights are ignored.
func (c Catalog) WithWeights(weights map[string]float64) Catalog {
	out := make(Catalog, len(c))
	for id, r := range c {
		if w, ok := weights[id]; ok && w >= 0 {
			r.Weight = w
		}
		out[id] = r
	}
	return out
}

// IDs returns the rule ids in sorted order.
func (c Catalog) IDs() []string {
	ids := make([]string, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c Catalog) signal(id string, evidence map[string]any) model.Signal {
	r, ok := c[id]
	if !ok {
		r = Rule{ID: id, Label: id, Severity: model.SeverityLow}
	}
	return model.Signal{
		ID:       r.ID,
		Label:    r.Label,
		Severity: r.Severity,
		Weight:   r.Weight,
		Evidence: evidence,
	}
}

// Evaluators returns the sender, content, link and attachment evaluators.
func Evaluators(c Catalog) []evaluator.Evaluator {
	return []evaluator.Evaluator{
		evaluator.Func("sender", func(p *model.Payload) []model.Signal { return EvaluateSender(c, p) }),
		evaluator.Func("content", func(p *model.Payload) []model.Signal { return EvaluateContent(c, p) }),
		evaluator.Func("link", func(p *model.Payload) []model.Signal { return EvaluateLinks(c, p) }),
		evaluator.Func("attachment", func(p *model.Payload) []model.Signal { return EvaluateAttachments(c, p) }),
	}
}
