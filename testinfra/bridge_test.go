// Package testinfra runs end-to-end relay tests with both platform ports
// faked in-process: Telegram <-> Bridge <-> Discord.
//
// The full relay pipeline is exercised: routing, grouping, formatting,
// reply correlation, media staging and failure containment. Only the
// platform SDK edges are replaced; the bridge, tracker, router, formatters
// and media pipeline are the real thing.
package testinfra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/denikryt/telegram-discord-bridge/pkg/bridge"
	"github.com/denikryt/telegram-discord-bridge/pkg/correlation"
	"github.com/denikryt/telegram-discord-bridge/pkg/media"
)

// ────────────────────────────────────────────────────────────────────
// Fake platform ports & correlation store
// ────────────────────────────────────────────────────────────────────

type delivered struct {
	channel bridge.ChannelID
	msg     bridge.OutboundText
	att     *media.Attachment
}

// fakePlatform is one side of the bridge: it records deliveries and assigns
// monotonically increasing message ids, like a platform server would.
type fakePlatform struct {
	platform bridge.Platform
	botID    bridge.UserID

	delivered []delivered
	nextID    int

	sendErr   error
	verifyErr error
	files     map[string][]byte
}

func newFakePlatform(p bridge.Platform, botID bridge.UserID) *fakePlatform {
	return &fakePlatform{platform: p, botID: botID, files: map[string][]byte{}}
}

func (f *fakePlatform) Platform() bridge.Platform { return f.platform }
func (f *fakePlatform) BotID() bridge.UserID      { return f.botID }

func (f *fakePlatform) SendText(_ context.Context, channel bridge.ChannelID, msg bridge.OutboundText) (bridge.MessageID, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.delivered = append(f.delivered, delivered{channel: channel, msg: msg})
	f.nextID++
	return bridge.MessageID(fmt.Sprintf("%s-%d", f.platform, f.nextID)), nil
}

func (f *fakePlatform) SendAttachment(_ context.Context, channel bridge.ChannelID, msg bridge.OutboundText, att media.Attachment) (bridge.MessageID, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	a := att
	f.delivered = append(f.delivered, delivered{channel: channel, msg: msg, att: &a})
	f.nextID++
	return bridge.MessageID(fmt.Sprintf("%s-%d", f.platform, f.nextID)), nil
}

func (f *fakePlatform) VerifyMessage(context.Context, bridge.ChannelID, bridge.MessageID) error {
	return f.verifyErr
}

func (f *fakePlatform) FetchMedia(_ context.Context, ref media.Ref) ([]byte, string, error) {
	data, ok := f.files[ref.FileID]
	if !ok {
		return nil, "", errors.New("no such file")
	}
	return data, ref.Filename, nil
}

func (f *fakePlatform) lastText(t *testing.T) bridge.OutboundText {
	t.Helper()
	if len(f.delivered) == 0 {
		t.Fatalf("%s: nothing delivered", f.platform)
	}
	return f.delivered[len(f.delivered)-1].msg
}

// memStore is an in-memory correlation.Store.
type memStore struct {
	dc2tg map[string]string
	tg2dc map[string]string
}

func newMemStore() *memStore {
	return &memStore{dc2tg: map[string]string{}, tg2dc: map[string]string{}}
}

func (s *memStore) Put(_ context.Context, _, discordID, telegramID string) error {
	s.dc2tg[discordID] = telegramID
	s.tg2dc[telegramID] = discordID
	return nil
}

func (s *memStore) ToTelegram(_ context.Context, _, discordID string) (string, error) {
	if id, ok := s.dc2tg[discordID]; ok {
		return id, nil
	}
	return "", correlation.ErrNotFound
}

func (s *memStore) ToDiscord(_ context.Context, _, telegramID string) (string, error) {
	if id, ok := s.tg2dc[telegramID]; ok {
		return id, nil
	}
	return "", correlation.ErrNotFound
}

// ────────────────────────────────────────────────────────────────────
// Test harness
// ────────────────────────────────────────────────────────────────────

const (
	dcChannel = "555000111"
	tgChat    = int64(-1000200300)
)

type harness struct {
	bridge  *bridge.Bridge
	discord *fakePlatform
	tg      *fakePlatform
	store   *memStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	pipeline, err := media.NewPipeline(t.TempDir(), "", zerolog.Nop())
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	t.Cleanup(pipeline.Close)

	store := newMemStore()
	router := bridge.NewRouter([]bridge.ChannelPair{{
		Discord:   bridge.MakeDiscordChannelID(dcChannel),
		Telegram:  bridge.MakeTelegramChannelID(tgChat),
		Partition: "e2e",
	}})
	br := bridge.New(router, bridge.NewTracker(), store, pipeline, bridge.Options{
		AnnouncerRewrite:      true,
		RenderAnnouncerHeader: true,
	}, zerolog.Nop())

	dc := newFakePlatform(bridge.PlatformDiscord, "dc-bot")
	tg := newFakePlatform(bridge.PlatformTelegram, "tg-bot")
	br.RegisterPort(dc)
	br.RegisterPort(tg)
	return &harness{bridge: br, discord: dc, tg: tg, store: store}
}

func (h *harness) fromTelegram(t *testing.T, msgID int, sender, name, text string) {
	t.Helper()
	err := h.bridge.Relay(context.Background(), bridge.InboundEvent{
		Platform:   bridge.PlatformTelegram,
		ChannelID:  bridge.MakeTelegramChannelID(tgChat),
		MessageID:  bridge.MakeTelegramMessageID(msgID),
		SenderID:   bridge.UserID(sender),
		SenderName: name,
		Content:    text,
	})
	if err != nil {
		t.Fatalf("telegram relay: %v", err)
	}
}

func (h *harness) fromDiscord(t *testing.T, msgID, sender, name, text string) {
	t.Helper()
	err := h.bridge.Relay(context.Background(), bridge.InboundEvent{
		Platform:   bridge.PlatformDiscord,
		ChannelID:  bridge.MakeDiscordChannelID(dcChannel),
		MessageID:  bridge.MakeDiscordMessageID(msgID),
		SenderID:   bridge.UserID(sender),
		SenderName: name,
		Content:    text,
	})
	if err != nil {
		t.Fatalf("discord relay: %v", err)
	}
}

// ────────────────────────────────────────────────────────────────────
// Scenarios
// ────────────────────────────────────────────────────────────────────

func TestConversationRoundTrip(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.fromTelegram(t, 1, "alice", "Alice", "hi from telegram")
	h.fromDiscord(t, "d1", "bob", "Bob", "hi from discord")

	if len(h.discord.delivered) != 1 {
		t.Fatalf("discord deliveries: got %d, want 1", len(h.discord.delivered))
	}
	if len(h.tg.delivered) != 1 {
		t.Fatalf("telegram deliveries: got %d, want 1", len(h.tg.delivered))
	}
	if got := h.discord.lastText(t).Text; !strings.Contains(got, "**Alice**") {
		t.Errorf("discord side header: got %q", got)
	}
	if got := h.tg.lastText(t).Text; !strings.Contains(got, "<b>Bob</b>") {
		t.Errorf("telegram side header: got %q", got)
	}
}

func TestReplyThreadingBothDirections(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	// Alice's telegram message 1 lands on Discord as discord-1.
	h.fromTelegram(t, 1, "alice", "Alice", "question?")

	// Bob replies on Discord to discord-1; the relay threads it back to
	// telegram message 1.
	err := h.bridge.Relay(context.Background(), bridge.InboundEvent{
		Platform:   bridge.PlatformDiscord,
		ChannelID:  bridge.MakeDiscordChannelID(dcChannel),
		MessageID:  bridge.MakeDiscordMessageID("d1"),
		SenderID:   "bob",
		SenderName: "Bob",
		Content:    "answer!",
		ReplyToID:  bridge.MessageID("discord-1"),
	})
	if err != nil {
		t.Fatalf("discord relay: %v", err)
	}
	if got := h.tg.lastText(t).ReplyTo; got != bridge.MessageID("1") {
		t.Errorf("telegram reply anchor: got %q, want %q", got, "1")
	}

	// Alice replies on Telegram to the bridged copy of Bob's answer.
	err = h.bridge.Relay(context.Background(), bridge.InboundEvent{
		Platform:   bridge.PlatformTelegram,
		ChannelID:  bridge.MakeTelegramChannelID(tgChat),
		MessageID:  bridge.MakeTelegramMessageID(2),
		SenderID:   "alice",
		SenderName: "Alice",
		Content:    "thanks",
		ReplyToID:  bridge.MessageID("telegram-1"),
	})
	if err != nil {
		t.Fatalf("telegram relay: %v", err)
	}
	if got := h.discord.lastText(t).ReplyTo; got != bridge.MessageID("d1") {
		t.Errorf("discord reply anchor: got %q, want %q", got, "d1")
	}
}

func TestGroupingSuppressesRepeatedHeaders(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.fromTelegram(t, 1, "alice", "Alice", "one")
	h.fromTelegram(t, 2, "alice", "Alice", "two")
	h.fromTelegram(t, 3, "bob", "Bob", "three")

	texts := h.discord.delivered
	if len(texts) != 3 {
		t.Fatalf("deliveries: got %d, want 3", len(texts))
	}
	if !strings.Contains(texts[0].msg.Text, "**Alice**") {
		t.Errorf("first message misses header: %q", texts[0].msg.Text)
	}
	if strings.Contains(texts[1].msg.Text, "**Alice**") {
		t.Errorf("second message repeats header: %q", texts[1].msg.Text)
	}
	if !strings.Contains(texts[2].msg.Text, "**Bob**") {
		t.Errorf("speaker change misses header: %q", texts[2].msg.Text)
	}
}

func TestGroupingResetsAfterNativeInterruption(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.fromTelegram(t, 1, "alice", "Alice", "one")
	// Bob posts on Discord between Alice's messages; his message flows the
	// other way and overwrites the last-sender state on both sides.
	h.fromDiscord(t, "d1", "bob", "Bob", "interjection")
	h.fromTelegram(t, 2, "alice", "Alice", "two")

	last := h.discord.lastText(t)
	if !strings.Contains(last.Text, "**Alice**") {
		t.Errorf("post-interruption message misses header: %q", last.Text)
	}
}

func TestMediaEndToEnd(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.tg.files["file-abc"] = []byte("jpeg-bytes")

	err := h.bridge.Relay(context.Background(), bridge.InboundEvent{
		Platform:   bridge.PlatformTelegram,
		ChannelID:  bridge.MakeTelegramChannelID(tgChat),
		MessageID:  bridge.MakeTelegramMessageID(1),
		SenderID:   "alice",
		SenderName: "Alice",
		Content:    "photo time",
		Media: []media.Ref{{
			FileID:    "file-abc",
			Kind:      media.KindPhoto,
			SizeBytes: 10,
			Filename:  "photo.jpg",
		}},
	})
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if len(h.discord.delivered) != 1 {
		t.Fatalf("deliveries: got %d, want 1", len(h.discord.delivered))
	}
	got := h.discord.delivered[0]
	if got.att == nil {
		t.Fatal("delivery carries no attachment")
	}
	if !strings.HasSuffix(got.att.Name, ".jpg") {
		t.Errorf("attachment name: got %q, want .jpg suffix", got.att.Name)
	}
	if !strings.Contains(got.msg.Text, "photo time") {
		t.Errorf("caption: got %q", got.msg.Text)
	}
}

func TestAnnouncerRewriteEndToEnd(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	err := h.bridge.Relay(context.Background(), bridge.InboundEvent{
		Platform:       bridge.PlatformDiscord,
		ChannelID:      bridge.MakeDiscordChannelID(dcChannel),
		MessageID:      bridge.MakeDiscordMessageID("d1"),
		SenderID:       "hb",
		SenderName:     "hackbridge",
		SenderUsername: "hackbridge",
		Content:        "➤ Lobby\n**[Carol](<https://example.org/carol>)**: shipped it",
	})
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	got := h.tg.lastText(t)
	if !strings.HasPrefix(got.Text, "➤ Lobby") {
		t.Errorf("announcer header: got %q", got.Text)
	}
	if !strings.Contains(got.Text, `<a href="https://example.org/carol">Carol</a>`) {
		t.Errorf("announcer body: got %q", got.Text)
	}
	if !got.DisableLinkPreview {
		t.Error("announcer: link preview not disabled")
	}
}

func TestSendFailureDoesNotPoisonNextRelay(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.discord.sendErr = errors.New("gateway hiccup")
	err := h.bridge.Relay(context.Background(), bridge.InboundEvent{
		Platform:   bridge.PlatformTelegram,
		ChannelID:  bridge.MakeTelegramChannelID(tgChat),
		MessageID:  bridge.MakeTelegramMessageID(1),
		SenderID:   "alice",
		SenderName: "Alice",
		Content:    "lost",
	})
	if !errors.Is(err, bridge.ErrSendFailed) {
		t.Fatalf("failed relay: got %v, want ErrSendFailed", err)
	}

	h.discord.sendErr = nil
	h.fromTelegram(t, 2, "alice", "Alice", "back again")
	if got := h.discord.lastText(t).Text; !strings.Contains(got, "back again") {
		t.Errorf("recovery message: got %q", got)
	}
}

func TestUnmappedChannelIsIsolated(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	err := h.bridge.Relay(context.Background(), bridge.InboundEvent{
		Platform:  bridge.PlatformTelegram,
		ChannelID: bridge.MakeTelegramChannelID(-42),
		MessageID: bridge.MakeTelegramMessageID(1),
		SenderID:  "alice",
		Content:   "into the void",
	})
	if !errors.Is(err, bridge.ErrChannelMappingMissing) {
		t.Fatalf("unmapped relay: got %v, want ErrChannelMappingMissing", err)
	}
	if len(h.discord.delivered)+len(h.tg.delivered) != 0 {
		t.Error("unmapped event was still delivered somewhere")
	}
}
