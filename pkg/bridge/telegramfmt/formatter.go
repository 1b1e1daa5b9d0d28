// Copyright 2024-2026 Aiku AI

// Package telegramfmt converts Discord message content to Telegram HTML.
//
// Two mutually exclusive paths exist per message: the generic path
// (mention substitution plus escaping) in this file, and the announcer
// pass-through rewrite in announcer.go.
package telegramfmt

import (
	"html"
	"strings"
)

// Message is a formatted outbound Telegram payload.
type Message struct {
	Text               string
	DisableLinkPreview bool
}

// Mention is a Discord user mention to substitute in the message body.
type Mention struct {
	UserID      string
	DisplayName string
}

// Format runs the generic path: Discord mention tokens become bold-italic
// display names, everything else is escaped for Telegram HTML.
func Format(content string, mentions []Mention) string {
	replaced := content
	for _, m := range mentions {
		sub := "\x00M" + m.UserID + "\x00"
		replaced = strings.ReplaceAll(replaced, "<@!"+m.UserID+">", sub)
		replaced = strings.ReplaceAll(replaced, "<@"+m.UserID+">", sub)
	}
	escaped := html.EscapeString(replaced)
	for _, m := range mentions {
		// Placeholders survive escaping untouched: NUL and digits are not
		// HTML-significant.
		sub := "\x00M" + m.UserID + "\x00"
		escaped = strings.ReplaceAll(escaped, sub,
			"<b><i>"+html.EscapeString(m.DisplayName)+"</i></b>")
	}
	return escaped
}

// Header renders the sender identification line prepended to a message when
// the grouping logic decides the speaker changed.
func Header(icon, displayName string) string {
	return icon + " <b>" + html.EscapeString(displayName) + "</b>"
}
