// Copyright 2024-2026 Aiku AI

// Package discordfmt converts Telegram message content to Discord markdown.
//
// Telegram text arrives as plain text (captions included); the only work on
// this direction is mention substitution and header rendering. Rich entity
// translation beyond bold/italic/links is deliberately out of scope.
package discordfmt

import "strings"

// Mention is a Telegram user mention to substitute in the message body.
// Token is the literal text span of the mention as it appears in the message.
type Mention struct {
	Token       string
	DisplayName string
}

// Format runs the generic path for the Telegram→Discord direction.
func Format(content string, mentions []Mention) string {
	for _, m := range mentions {
		if m.Token == "" {
			continue
		}
		content = strings.ReplaceAll(content, m.Token, "***"+m.DisplayName+"***")
	}
	return content
}

// Header renders the sender identification line prepended to a message when
// the grouping logic decides the speaker changed.
func Header(icon, displayName string) string {
	return icon + " **" + displayName + "**"
}
