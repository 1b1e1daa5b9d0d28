// Copyright 2024-2026 Aiku AI

// Package telegram adapts a Telegram Bot API client to the bridge's Port
// interface and runs the long-poll worker that feeds inbound group messages
// to the relay.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/denikryt/telegram-discord-bridge/pkg/bridge"
	"github.com/denikryt/telegram-discord-bridge/pkg/media"
)

const welcomeText = "Hello! I relay messages between this group and its " +
	"linked Discord channel. Add me to a group and map the chat to get started."

const (
	pollTimeout = 30 * time.Second
	pollBackoff = 3 * time.Second
)

// sleepCtx waits for d or ctx cancellation, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Relayer is the bridge surface this connector needs.
type Relayer interface {
	Relay(ctx context.Context, ev bridge.InboundEvent) error
	NoteOwnMessage(platform bridge.Platform, channel bridge.ChannelID)
}

// Client is the Telegram side of the bridge.
type Client struct {
	bot   *tgbotapi.BotAPI
	relay Relayer
	http  *http.Client
	log   zerolog.Logger
}

var _ bridge.Port = (*Client)(nil)

// NewClient authenticates against the Bot API and returns a Client. The poll
// worker is not started until StartPolling.
func NewClient(token string, relay Relayer, log zerolog.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate telegram bot: %w", err)
	}
	c := &Client{
		bot:   bot,
		relay: relay,
		http:  &http.Client{},
		log:   log.With().Str("component", "telegram").Logger(),
	}
	c.log.Info().
		Int64("user_id", bot.Self.ID).
		Str("username", bot.Self.UserName).
		Msg("Telegram bot authenticated")
	return c, nil
}

// StartPolling launches the long-poll worker. It returns immediately; the
// worker stops when ctx is cancelled.
func (c *Client) StartPolling(ctx context.Context) {
	go c.pollLoop(ctx)
}

func (c *Client) pollLoop(ctx context.Context) {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = int(pollTimeout.Seconds())
		updates, err := c.bot.GetUpdates(u)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to fetch telegram updates, backing off")
			if !sleepCtx(ctx, pollBackoff) {
				return
			}
			continue
		}
		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			c.handleUpdate(ctx, update)
		}
	}
}

func (c *Client) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}
	if msg.From.ID == c.bot.Self.ID {
		c.relay.NoteOwnMessage(bridge.PlatformTelegram, bridge.MakeTelegramChannelID(msg.Chat.ID))
		return
	}
	if msg.IsCommand() {
		c.handleCommand(msg)
		return
	}
	// Only group chats are bridged. Private chats get nothing beyond the
	// command replies above.
	if !msg.Chat.IsGroup() && !msg.Chat.IsSuperGroup() {
		return
	}

	ev := EventFromMessage(msg)
	c.log.Debug().
		Int64("chat_id", msg.Chat.ID).
		Int("message_id", msg.MessageID).
		Int64("user_id", msg.From.ID).
		Bool("reply", ev.ReplyToID != "").
		Int("attachments", len(ev.Media)).
		Msg("Received telegram message")

	if err := c.relay.Relay(ctx, ev); err != nil {
		c.log.Debug().Err(err).Int("message_id", msg.MessageID).Msg("Relay did not complete")
	}
}

func (c *Client) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		reply := tgbotapi.NewMessage(msg.Chat.ID, welcomeText)
		if _, err := c.bot.Send(reply); err != nil {
			c.log.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Failed to send welcome message")
		}
	}
}

// EventFromMessage converts a Telegram message to a platform-neutral inbound
// event. Pure; exported for tests.
func EventFromMessage(msg *tgbotapi.Message) bridge.InboundEvent {
	ev := bridge.InboundEvent{
		Platform:       bridge.PlatformTelegram,
		ChannelID:      bridge.MakeTelegramChannelID(msg.Chat.ID),
		MessageID:      bridge.MakeTelegramMessageID(msg.MessageID),
		SenderID:       bridge.MakeTelegramUserID(msg.From.ID),
		SenderName:     senderName(msg.From),
		SenderUsername: msg.From.UserName,
		Content:        messageText(msg),
	}
	if msg.ReplyToMessage != nil {
		ev.ReplyToID = bridge.MakeTelegramMessageID(msg.ReplyToMessage.MessageID)
	}
	ev.Media = mediaRefs(msg, &ev)
	return ev
}

func senderName(u *tgbotapi.User) string {
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}

func messageText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func mediaRefs(msg *tgbotapi.Message, ev *bridge.InboundEvent) []media.Ref {
	var refs []media.Ref
	switch {
	case len(msg.Photo) > 0:
		// Telegram lists every resolution; the last entry is the largest.
		p := msg.Photo[len(msg.Photo)-1]
		refs = append(refs, media.Ref{
			FileID:    p.FileID,
			Kind:      media.KindPhoto,
			SizeBytes: int64(p.FileSize),
		})
	case msg.Video != nil:
		refs = append(refs, media.Ref{
			FileID:    msg.Video.FileID,
			Kind:      media.KindVideo,
			SizeBytes: int64(msg.Video.FileSize),
			Filename:  msg.Video.FileName,
		})
	case msg.Document != nil:
		refs = append(refs, media.Ref{
			FileID:    msg.Document.FileID,
			Kind:      media.KindDocument,
			SizeBytes: int64(msg.Document.FileSize),
			Filename:  msg.Document.FileName,
		})
	case msg.Audio != nil:
		refs = append(refs, media.Ref{
			FileID:    msg.Audio.FileID,
			Kind:      media.KindAudio,
			SizeBytes: int64(msg.Audio.FileSize),
			Filename:  msg.Audio.FileName,
		})
	case msg.Voice != nil:
		refs = append(refs, media.Ref{
			FileID:    msg.Voice.FileID,
			Kind:      media.KindVoice,
			SizeBytes: int64(msg.Voice.FileSize),
		})
	case msg.Sticker != nil:
		if msg.Sticker.IsAnimated || msg.Sticker.IsVideo {
			// Animated stickers have no portable rendering on the other
			// side; relay a text placeholder instead.
			ev.Content = stickerPlaceholder(msg.Sticker)
			return nil
		}
		refs = append(refs, media.Ref{
			FileID:    msg.Sticker.FileID,
			Kind:      media.KindSticker,
			SizeBytes: int64(msg.Sticker.FileSize),
			Filename:  "sticker.webp",
		})
	}
	return refs
}

func stickerPlaceholder(s *tgbotapi.Sticker) string {
	if s.Emoji != "" {
		return s.Emoji + " (sticker)"
	}
	return "(sticker)"
}

// Platform implements bridge.Port.
func (c *Client) Platform() bridge.Platform {
	return bridge.PlatformTelegram
}

// BotID implements bridge.Port.
func (c *Client) BotID() bridge.UserID {
	return bridge.MakeTelegramUserID(c.bot.Self.ID)
}

// SendText implements bridge.Port. Replies to deleted messages degrade to a
// plain send on the server side via AllowSendingWithoutReply.
func (c *Client) SendText(_ context.Context, channel bridge.ChannelID, msg bridge.OutboundText) (bridge.MessageID, error) {
	chatID, err := bridge.ParseTelegramChannelID(channel)
	if err != nil {
		return "", err
	}
	out := tgbotapi.NewMessage(chatID, msg.Text)
	out.ParseMode = tgbotapi.ModeHTML
	out.DisableWebPagePreview = msg.DisableLinkPreview
	applyReply(&out.BaseChat, msg.ReplyTo)
	sent, err := c.bot.Send(out)
	if err != nil {
		return "", err
	}
	return bridge.MakeTelegramMessageID(sent.MessageID), nil
}

// SendAttachment implements bridge.Port. The attachment kind picks the Bot
// API upload method so photos and videos render inline.
func (c *Client) SendAttachment(_ context.Context, channel bridge.ChannelID, msg bridge.OutboundText, att media.Attachment) (bridge.MessageID, error) {
	chatID, err := bridge.ParseTelegramChannelID(channel)
	if err != nil {
		return "", err
	}
	file := tgbotapi.FilePath(att.Path)

	var sent tgbotapi.Message
	switch att.Kind {
	case media.KindPhoto, media.KindSticker:
		out := tgbotapi.NewPhoto(chatID, file)
		out.Caption = msg.Text
		out.ParseMode = tgbotapi.ModeHTML
		applyReply(&out.BaseChat, msg.ReplyTo)
		sent, err = c.bot.Send(out)
	case media.KindVideo:
		out := tgbotapi.NewVideo(chatID, file)
		out.Caption = msg.Text
		out.ParseMode = tgbotapi.ModeHTML
		applyReply(&out.BaseChat, msg.ReplyTo)
		sent, err = c.bot.Send(out)
	case media.KindAudio:
		out := tgbotapi.NewAudio(chatID, file)
		out.Caption = msg.Text
		out.ParseMode = tgbotapi.ModeHTML
		applyReply(&out.BaseChat, msg.ReplyTo)
		sent, err = c.bot.Send(out)
	case media.KindVoice:
		out := tgbotapi.NewVoice(chatID, file)
		out.Caption = msg.Text
		out.ParseMode = tgbotapi.ModeHTML
		applyReply(&out.BaseChat, msg.ReplyTo)
		sent, err = c.bot.Send(out)
	default:
		out := tgbotapi.NewDocument(chatID, file)
		out.Caption = msg.Text
		out.ParseMode = tgbotapi.ModeHTML
		applyReply(&out.BaseChat, msg.ReplyTo)
		sent, err = c.bot.Send(out)
	}
	if err != nil {
		return "", err
	}
	return bridge.MakeTelegramMessageID(sent.MessageID), nil
}

// VerifyMessage implements bridge.Port. The Bot API has no message fetch
// primitive, so existence is not checked here; AllowSendingWithoutReply on
// the send degrades a dangling reply to a plain message instead.
func (c *Client) VerifyMessage(context.Context, bridge.ChannelID, bridge.MessageID) error {
	return nil
}

// FetchMedia implements media.Fetcher by resolving the file_id to a download
// URL and fetching it.
func (c *Client) FetchMedia(ctx context.Context, ref media.Ref) ([]byte, string, error) {
	f, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: ref.FileID})
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve telegram file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Link(c.bot.Token), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("telegram file download returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, downloadedName(ref, f.FilePath), nil
}

func downloadedName(ref media.Ref, filePath string) string {
	if ref.Filename != "" {
		return ref.Filename
	}
	if filePath != "" {
		return path.Base(filePath)
	}
	return ""
}

func applyReply(base *tgbotapi.BaseChat, replyTo bridge.MessageID) {
	if replyTo == "" {
		return
	}
	id, err := bridge.ParseTelegramMessageID(replyTo)
	if err != nil {
		return
	}
	base.ReplyToMessageID = id
	base.AllowSendingWithoutReply = true
}
