// Copyright 2024-2026 Aiku AI

// Package discord adapts a discordgo session to the bridge's Port interface.
//
// All outbound Discord operations are serialized onto a single run loop
// goroutine owned by this client. Sends triggered from the Telegram poll
// worker are posted to that loop as jobs and awaited, never issued from the
// worker thread directly.
package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/denikryt/telegram-discord-bridge/pkg/bridge"
	"github.com/denikryt/telegram-discord-bridge/pkg/media"
)

// Relayer is the bridge surface this connector needs. An interface so tests
// can inject a recorder instead of a full bridge.
type Relayer interface {
	Relay(ctx context.Context, ev bridge.InboundEvent) error
	NoteOwnMessage(platform bridge.Platform, channel bridge.ChannelID)
}

var errClientStopped = errors.New("discord client stopped")

// Client is the Discord side of the bridge.
type Client struct {
	session *discordgo.Session
	relay   Relayer
	http    *http.Client

	jobs     chan func()
	stopOnce sync.Once
	stopChan chan struct{}

	mu    sync.RWMutex
	botID string

	log zerolog.Logger
}

var _ bridge.Port = (*Client)(nil)

// NewClient builds a Client around a new discordgo session. The session is
// not opened until Connect.
func NewClient(token string, relay Relayer, log zerolog.Logger) (*Client, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	c := &Client{
		session:  session,
		relay:    relay,
		http:     &http.Client{},
		jobs:     make(chan func(), 64),
		stopChan: make(chan struct{}),
		log:      log.With().Str("component", "discord").Logger(),
	}
	session.AddHandler(c.handleReady)
	session.AddHandler(c.handleMessageCreate)
	return c, nil
}

// Connect opens the gateway session and starts the outbound run loop.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	go c.runLoop(ctx)
	c.log.Info().Msg("Discord gateway connected")
	return nil
}

// Disconnect stops the run loop and closes the gateway session.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
	if err := c.session.Close(); err != nil {
		c.log.Warn().Err(err).Msg("Failed to close discord session")
	}
}

// runLoop executes queued outbound jobs one at a time.
func (c *Client) runLoop(ctx context.Context) {
	for {
		select {
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		case job := <-c.jobs:
			job()
		}
	}
}

// do posts fn to the run loop and waits for its result.
func (c *Client) do(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	select {
	case c.jobs <- func() { errCh <- fn() }:
	case <-c.stopChan:
		return errClientStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	c.mu.Lock()
	c.botID = r.User.ID
	c.mu.Unlock()
	c.log.Info().
		Str("user_id", r.User.ID).
		Str("username", r.User.Username).
		Msg("Discord bot ready")
}

func (c *Client) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	if m.Author.ID == c.selfID() {
		// Our own outbound message echoed back: seed grouping state so the
		// tracker knows the bridge posted last on this channel.
		c.relay.NoteOwnMessage(bridge.PlatformDiscord, bridge.MakeDiscordChannelID(m.ChannelID))
		return
	}

	ev := EventFromMessage(m.Message)
	c.log.Debug().
		Str("channel_id", m.ChannelID).
		Str("message_id", m.ID).
		Str("user_id", m.Author.ID).
		Bool("reply", ev.ReplyToID != "").
		Int("attachments", len(ev.Media)).
		Msg("Received discord message")

	if err := c.relay.Relay(context.Background(), ev); err != nil {
		c.log.Debug().Err(err).Str("message_id", m.ID).Msg("Relay did not complete")
	}
}

func (c *Client) selfID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.botID
}

// EventFromMessage converts a Discord message to a platform-neutral inbound
// event. Pure; exported for tests.
func EventFromMessage(m *discordgo.Message) bridge.InboundEvent {
	ev := bridge.InboundEvent{
		Platform:       bridge.PlatformDiscord,
		ChannelID:      bridge.MakeDiscordChannelID(m.ChannelID),
		MessageID:      bridge.MakeDiscordMessageID(m.ID),
		SenderID:       bridge.MakeDiscordUserID(m.Author.ID),
		SenderName:     displayName(m),
		SenderUsername: m.Author.Username,
		Content:        m.Content,
	}
	if m.MessageReference != nil && m.MessageReference.MessageID != "" {
		ev.ReplyToID = bridge.MakeDiscordMessageID(m.MessageReference.MessageID)
	}
	for _, u := range m.Mentions {
		name := u.GlobalName
		if name == "" {
			name = u.Username
		}
		ev.Mentions = append(ev.Mentions, bridge.Mention{
			UserID:      bridge.MakeDiscordUserID(u.ID),
			DisplayName: name,
		})
	}
	for _, att := range m.Attachments {
		ev.Media = append(ev.Media, media.Ref{
			FileID:    att.URL,
			Kind:      kindFromContentType(att.ContentType),
			SizeBytes: int64(att.Size),
			Filename:  att.Filename,
		})
	}
	return ev
}

func displayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}

func kindFromContentType(contentType string) media.Kind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return media.KindPhoto
	case strings.HasPrefix(contentType, "video/"):
		return media.KindVideo
	case strings.HasPrefix(contentType, "audio/"):
		return media.KindAudio
	default:
		return media.KindDocument
	}
}

// Platform implements bridge.Port.
func (c *Client) Platform() bridge.Platform {
	return bridge.PlatformDiscord
}

// BotID implements bridge.Port.
func (c *Client) BotID() bridge.UserID {
	return bridge.MakeDiscordUserID(c.selfID())
}

// SendText implements bridge.Port. The send runs on the Discord run loop.
func (c *Client) SendText(ctx context.Context, channel bridge.ChannelID, msg bridge.OutboundText) (bridge.MessageID, error) {
	var sentID bridge.MessageID
	err := c.do(ctx, func() error {
		sent, err := c.session.ChannelMessageSendComplex(string(channel), &discordgo.MessageSend{
			Content:   msg.Text,
			Reference: replyReference(channel, msg.ReplyTo),
		})
		if err != nil {
			return err
		}
		sentID = bridge.MakeDiscordMessageID(sent.ID)
		return nil
	})
	return sentID, err
}

// SendAttachment implements bridge.Port. The file is opened on the calling
// goroutine; only the network send runs on the run loop.
func (c *Client) SendAttachment(ctx context.Context, channel bridge.ChannelID, msg bridge.OutboundText, att media.Attachment) (bridge.MessageID, error) {
	f, err := os.Open(att.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open attachment %s: %w", att.Path, err)
	}
	defer f.Close()

	var sentID bridge.MessageID
	err = c.do(ctx, func() error {
		sent, err := c.session.ChannelMessageSendComplex(string(channel), &discordgo.MessageSend{
			Content:   msg.Text,
			Files:     []*discordgo.File{{Name: att.Name, Reader: f}},
			Reference: replyReference(channel, msg.ReplyTo),
		})
		if err != nil {
			return err
		}
		sentID = bridge.MakeDiscordMessageID(sent.ID)
		return nil
	})
	return sentID, err
}

// VerifyMessage implements bridge.Port by fetching the message.
func (c *Client) VerifyMessage(ctx context.Context, channel bridge.ChannelID, id bridge.MessageID) error {
	return c.do(ctx, func() error {
		_, err := c.session.ChannelMessage(string(channel), string(id))
		return err
	})
}

// FetchMedia implements media.Fetcher for Discord attachment URLs. Downloads
// run on the calling relay goroutine, not the run loop.
func (c *Client) FetchMedia(ctx context.Context, ref media.Ref) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.FileID, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("attachment download returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, remoteName(ref), nil
}

func remoteName(ref media.Ref) string {
	if ref.Filename != "" {
		return ref.Filename
	}
	if u, err := url.Parse(ref.FileID); err == nil {
		return path.Base(u.Path)
	}
	return ""
}

func replyReference(channel bridge.ChannelID, replyTo bridge.MessageID) *discordgo.MessageReference {
	if replyTo == "" {
		return nil
	}
	return &discordgo.MessageReference{
		MessageID: string(replyTo),
		ChannelID: string(channel),
	}
}
