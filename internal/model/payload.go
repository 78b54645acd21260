package model

import (
	"encoding/json"
	"strings"
)

// Attachment is the metadata of one attached file. Content is never inspected.
type Attachment struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Payload is the normalized email handed to every evaluator. It is read-only
// input: evaluators must not modify it.
type Payload struct {
	From     string `json:"from"`
	ReplyTo  string `json:"replyTo"`
	Subject  string `json:"subject"`
	BodyText string `json:"bodyText"`

	// BodyHTML is optional; when present the link evaluator inspects anchors.
	BodyHTML string `json:"bodyHtml,omitempty"`

	Links       []string     `json:"links"`
	Attachments []Attachment `json:"attachments"`
}

// IsEmpty reports whether the payload carries no evidence at all.
func (p *Payload) IsEmpty() bool {
	if p == nil {
		return true
	}
	return strings.TrimSpace(p.From+p.ReplyTo+p.Subject+p.BodyText+p.BodyHTML) == "" &&
		len(p.Links) == 0 && len(p.Attachments) == 0
}

// UnmarshalJSON decodes a payload leniently. Missing or wrong-typed fields are
// treated as empty; only syntactically invalid JSON is an error.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// A JSON value that is valid but not an object decodes to an empty payload.
		var anyValue any
		if jerr := json.Unmarshal(data, &anyValue); jerr != nil {
			return err
		}
		*p = Payload{}
		return nil
	}

	out := Payload{
		From:     lenientString(raw["from"]),
		ReplyTo:  lenientString(raw["replyTo"]),
		Subject:  lenientString(raw["subject"]),
		BodyText: lenientString(raw["bodyText"]),
		BodyHTML: lenientString(raw["bodyHtml"]),
		Links:    lenientStrings(raw["links"]),
	}
	if out.From == "" {
		out.From = lenientString(raw["sender"])
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw["attachments"], &items); err == nil {
		for _, item := range items {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(item, &fields); err != nil {
				continue
			}
			out.Attachments = append(out.Attachments, Attachment{
				Filename:  lenientString(fields["filename"]),
				MimeType:  lenientString(fields["mimeType"]),
				SizeBytes: lenientInt(fields["sizeBytes"]),
			})
		}
	}

	*p = out
	return nil
}

func lenientString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func lenientStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) != nil || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func lenientInt(raw json.RawMessage) int64 {
	var f float64
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil || f < 0 {
		return 0
	}
	return int64(f)
}
