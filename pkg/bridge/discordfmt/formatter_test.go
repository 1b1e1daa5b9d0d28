// Copyright 2024-2026 Aiku AI

package discordfmt

import "testing"

func TestFormatPlainText(t *testing.T) {
	t.Parallel()
	result := Format("hello world", nil)
	if result != "hello world" {
		t.Errorf("plain text: got %q, want %q", result, "hello world")
	}
}

func TestFormatMention(t *testing.T) {
	t.Parallel()
	mentions := []Mention{{Token: "@alice", DisplayName: "Alice"}}
	result := Format("hi @alice!", mentions)
	want := "hi ***Alice***!"
	if result != want {
		t.Errorf("mention: got %q, want %q", result, want)
	}
}

func TestFormatEmptyTokenIgnored(t *testing.T) {
	t.Parallel()
	mentions := []Mention{{Token: "", DisplayName: "Alice"}}
	result := Format("hi there", mentions)
	if result != "hi there" {
		t.Errorf("empty token: got %q, want %q", result, "hi there")
	}
}

func TestFormatMultipleMentions(t *testing.T) {
	t.Parallel()
	mentions := []Mention{
		{Token: "@alice", DisplayName: "Alice"},
		{Token: "@bob", DisplayName: "Bob"},
	}
	result := Format("@alice meet @bob", mentions)
	want := "***Alice*** meet ***Bob***"
	if result != want {
		t.Errorf("multiple mentions: got %q, want %q", result, want)
	}
}

func TestHeader(t *testing.T) {
	t.Parallel()
	result := Header("🐒", "Alice")
	want := "🐒 **Alice**"
	if result != want {
		t.Errorf("header: got %q, want %q", result, want)
	}
}
