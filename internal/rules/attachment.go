package rules

import (
	"path"
	"strings"

	"github.com/raysh454/phishscan/internal/model"
)

var (
	executableExts = setOf("exe", "scr", "bat", "cmd", "com", "pif", "js", "jse", "vbs", "vbe",
		"wsf", "hta", "msi", "jar", "ps1", "lnk", "reg", "cpl", "dll", "apk")
	decoyExts = setOf("pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx", "txt", "rtf",
		"jpg", "jpeg", "png", "gif", "csv", "html", "htm")
	macroExts   = setOf("docm", "xlsm", "pptm", "dotm", "xltm", "xlam", "ppam")
	archiveExts = setOf("zip", "rar", "7z", "iso", "img", "gz", "tar", "cab", "ace", "vhd")
)

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// extensions returns the dot-separated extensions of a file name, outermost
// last: "Invoice.PDF.exe" -> ["pdf", "exe"].
func extensions(filename string) []string {
	base := strings.ToLower(strings.TrimRight(strings.TrimSpace(path.Base(filename)), ". "))
	parts := strings.Split(base, ".")
	if len(parts) < 2 {
		return nil
	}
	exts := parts[1:]
	for i := range exts {
		exts[i] = strings.TrimSpace(exts[i])
	}
	return exts
}

// mimeClaimsDocument reports whether the declared type promises something
// harmless to open.
func mimeClaimsDocument(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case mime == "application/pdf", strings.HasPrefix(mime, "image/"), strings.HasPrefix(mime, "text/"),
		mime == "application/msword", strings.HasPrefix(mime, "application/vnd.openxmlformats"),
		strings.HasPrefix(mime, "application/vnd.ms-"):
		return true
	}
	return false
}

// EvaluateAttachments checks attachment file names and declared types.
func EvaluateAttachments(c Catalog, p *model.Payload) []model.Signal {
	if p == nil {
		return nil
	}
	var out []model.Signal
	for _, att := range p.Attachments {
		exts := extensions(att.Filename)
		if len(exts) == 0 {
			continue
		}
		last := exts[len(exts)-1]
		ev := func() map[string]any {
			m := map[string]any{"filename": att.Filename, "extension": last}
			if att.MimeType != "" {
				m["mimeType"] = att.MimeType
			}
			return m
		}

		_, executable := executableExts[last]
		if executable {
			out = append(out, c.signal(AttachmentExecutable, ev()))
			if len(exts) >= 2 {
				if _, decoy := decoyExts[exts[len(exts)-2]]; decoy {
					out = append(out, c.signal(AttachmentDoubleExtension, ev()))
				}
			}
			if mimeClaimsDocument(att.MimeType) {
				out = append(out, c.signal(AttachmentMimeMismatch, ev()))
			}
		}
		if _, ok := macroExts[last]; ok {
			out = append(out, c.signal(AttachmentMacroDocument, ev()))
		}
		if _, ok := archiveExts[last]; ok {
			out = append(out, c.signal(AttachmentArchive, ev()))
		}
	}
	return out
}
