package rules

import (
	"strings"

	"github.com/raysh454/phishscan/internal/model"
)

var (
	urgencyPhrases = []string{
		"urgent", "immediately", "within 24 hours", "within 48 hours", "act now",
		"final notice", "expires today", "will be suspended", "will be closed",
		"last warning", "as soon as possible",
	}
	credentialPhrases = []string{
		"verify your account", "confirm your password", "enter your password",
		"login credentials", "confirm your identity", "validate your account",
		"update your payment information", "reset your password", "social security number",
		"verify your identity",
	}
	paymentPhrases = []string{
		"wire transfer", "gift card", "bank details", "payment overdue", "outstanding invoice",
		"bitcoin", "send payment", "change of bank account",
	}
	genericGreetings = []string{
		"dear customer", "dear user", "dear valued customer", "dear account holder",
		"dear client", "dear member", "hello user",
	}
	alarmingSubjectPhrases = []string{
		"suspended", "unusual activity", "security alert", "action required",
		"account locked", "unauthorized", "password expir", "verify now",
	}
)

func matchPhrases(text string, phrases []string) []string {
	var hits []string
	for _, ph := range phrases {
		if strings.Contains(text, ph) {
			hits = append(hits, ph)
		}
	}
	return hits
}

// EvaluateContent looks for social-engineering language in subject and body.
func EvaluateContent(c Catalog, p *model.Payload) []model.Signal {
	if p == nil {
		return nil
	}
	subject := strings.ToLower(p.Subject)
	body := strings.ToLower(p.BodyText)
	all := subject + "\n" + body

	var out []model.Signal
	emit := func(id string, phrases []string, text string) {
		if hits := matchPhrases(text, phrases); len(hits) > 0 {
			out = append(out, c.signal(id, map[string]any{"matches": hits}))
		}
	}

	emit(ContentUrgency, urgencyPhrases, all)
	emit(ContentCredentialRequest, credentialPhrases, all)
	emit(ContentPaymentRequest, paymentPhrases, all)
	emit(ContentGenericGreeting, genericGreetings, strings.TrimSpace(body))
	emit(ContentAlarmingSubject, alarmingSubjectPhrases, subject)

	return out
}
