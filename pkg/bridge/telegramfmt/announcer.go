// Copyright 2024-2026 Aiku AI

package telegramfmt

import (
	"html"
	"regexp"
	"strings"
)

// The announcer is a known bot that posts pre-structured announcements:
// an arrow-marked header line followed by lines of the form
// **[Name](<url>)**: message. Its content is re-rendered into Telegram HTML
// instead of going through the generic path.
const announcerName = "hackbridge"

var (
	headerClutterRe = regexp.MustCompile(`^[\s\-•]*#?\s*`)
	headerMarkRe    = regexp.MustCompile(`^[\s\-•]*#?\s*➤`)

	// Body lines: optional prefix, bold linked name, colon, message. The URL
	// may or may not be wrapped in angle brackets.
	bodyAngleRe = regexp.MustCompile(`^([\s\S]*?)\*\*\[([^\]]+)\]\(<([^>]+)>\)\*\*:\s*(.*)$`)
	bodyPlainRe = regexp.MustCompile(`^([\s\S]*?)\*\*\[([^\]]+)\]\(([^)]+)\)\*\*:\s*(.*)$`)

	linkAngleRe = regexp.MustCompile(`\[([^\]]+)\]\(<([^>]+)>\)`)
	linkPlainRe = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	boldRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe    = regexp.MustCompile(`_(.+?)_`)
	tagSplitRe  = regexp.MustCompile(`(<[^>]+>)`)
)

// IsAnnouncer reports whether the inbound message should take the
// pass-through path: either the author is the known announcer identity or
// the raw content already matches its structural pattern.
func IsAnnouncer(authorName, displayName, content string) bool {
	if strings.Contains(strings.ToLower(authorName), announcerName) ||
		strings.Contains(strings.ToLower(displayName), announcerName) {
		return true
	}
	return looksLikeAnnouncement(content)
}

func looksLikeAnnouncement(content string) bool {
	if content == "" {
		return false
	}
	lines := strings.Split(content, "\n")
	if headerMarkRe.MatchString(strings.TrimSpace(lines[0])) {
		return true
	}
	for _, line := range lines[1:] {
		if bodyAngleRe.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// Rewrite re-renders announcer content into Telegram HTML. The first line is
// stripped of bullet/heading clutter and re-emitted behind a normalized arrow
// marker (dropped entirely when renderHeader is false); each body line is
// re-parsed into prefix, name, url and message. The returned Message always
// requests link-preview suppression.
//
// ok is false when the content is empty after stripping; the caller decides
// whether to fall back to the generic path.
func Rewrite(content string, renderHeader bool) (Message, bool) {
	if strings.TrimSpace(content) == "" {
		return Message{}, false
	}

	var formatted []string
	for i, line := range strings.Split(content, "\n") {
		var out string
		if i == 0 {
			if !renderHeader {
				continue
			}
			out = rewriteHeaderLine(line)
		} else {
			out = rewriteBodyLine(line)
		}
		if out != "" {
			formatted = append(formatted, out)
		}
	}
	if len(formatted) == 0 {
		return Message{}, false
	}
	return Message{
		Text:               strings.Join(formatted, "\n"),
		DisableLinkPreview: true,
	}, true
}

func rewriteHeaderLine(line string) string {
	header := headerClutterRe.ReplaceAllString(strings.TrimSpace(line), "")
	header = strings.TrimSpace(strings.TrimPrefix(header, "➤"))
	if header == "" {
		return ""
	}
	return "➤ " + markdownToHTML(header)
}

func rewriteBodyLine(line string) string {
	text := strings.TrimSpace(line)
	if text == "" {
		return ""
	}
	for _, re := range []*regexp.Regexp{bodyAngleRe, bodyPlainRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			prefix, name, link, message := m[1], m[2], m[3], m[4]
			return EscapeKeepAmp(prefix) +
				`<b><a href="` + html.EscapeString(link) + `">` + EscapeKeepAmp(name) + `</a></b>: ` +
				EscapeKeepAmp(message)
		}
	}
	return markdownToHTML(text)
}

// markdownToHTML translates bold/italic/link markdown to Telegram HTML and
// escapes every remaining text segment, leaving already-built tags untouched.
func markdownToHTML(text string) string {
	if text == "" {
		return ""
	}
	out := linkAngleRe.ReplaceAllStringFunc(text, func(match string) string {
		m := linkAngleRe.FindStringSubmatch(match)
		return `<a href="` + html.EscapeString(m[2]) + `">` + EscapeKeepAmp(m[1]) + `</a>`
	})
	out = linkPlainRe.ReplaceAllStringFunc(out, func(match string) string {
		m := linkPlainRe.FindStringSubmatch(match)
		return `<a href="` + html.EscapeString(m[2]) + `">` + EscapeKeepAmp(m[1]) + `</a>`
	})
	out = boldRe.ReplaceAllStringFunc(out, func(match string) string {
		m := boldRe.FindStringSubmatch(match)
		return "<b>" + EscapeKeepAmp(m[1]) + "</b>"
	})
	out = italicRe.ReplaceAllStringFunc(out, func(match string) string {
		m := italicRe.FindStringSubmatch(match)
		return "<i>" + EscapeKeepAmp(m[1]) + "</i>"
	})

	// Escape the text between tags without touching the tags themselves.
	parts := splitKeepingTags(out)
	var b strings.Builder
	for _, part := range parts {
		if strings.HasPrefix(part, "<") && strings.HasSuffix(part, ">") {
			b.WriteString(part)
		} else {
			b.WriteString(EscapeKeepAmp(part))
		}
	}
	return b.String()
}

func splitKeepingTags(s string) []string {
	var parts []string
	last := 0
	for _, loc := range tagSplitRe.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			parts = append(parts, s[last:loc[0]])
		}
		parts = append(parts, s[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(s) {
		parts = append(parts, s[last:])
	}
	return parts
}

// EscapeKeepAmp escapes angle brackets for Telegram HTML while leaving
// ampersands visible, so entities already present in the text are not
// double-escaped into "&amp;".
func EscapeKeepAmp(s string) string {
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}
