// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/denikryt/telegram-discord-bridge/pkg/bridge/discordfmt"
	"github.com/denikryt/telegram-discord-bridge/pkg/bridge/telegramfmt"
	"github.com/denikryt/telegram-discord-bridge/pkg/media"
)

// Relay drives one inbound event through route resolution, grouping,
// formatting, media materialization, reply resolution and the outbound send,
// then records the message correlation. All failures are contained to this
// event; media files are cleaned up on every exit path past materialization.
func (b *Bridge) Relay(ctx context.Context, ev InboundEvent) error {
	log := b.log.With().
		Str("platform", ev.Platform.String()).
		Str("channel_id", string(ev.ChannelID)).
		Str("message_id", string(ev.MessageID)).
		Logger()

	route, err := b.router.Resolve(ev.Platform, ev.ChannelID)
	if err != nil {
		log.Warn().Err(err).Msg("Dropping event without route")
		return err
	}

	originPort, ok := b.ports[ev.Platform]
	if !ok {
		return fmt.Errorf("no port registered for %s", ev.Platform)
	}
	destPort, ok := b.ports[ev.Platform.Peer()]
	if !ok {
		return fmt.Errorf("no port registered for %s", ev.Platform.Peer())
	}

	showHeader := b.tracker.Observe(ev.Platform, ev.ChannelID, route.Target, ev.SenderID, destPort.BotID())

	out := b.formatOutbound(ev, showHeader)

	var assets []*media.Asset
	var notes []string
	for _, ref := range ev.Media {
		asset, err := b.pipeline.Materialize(ctx, ref, originPort)
		switch {
		case errors.Is(err, media.ErrTooLarge):
			log.Warn().Err(err).Str("file_id", ref.FileID).Msg("Skipping oversized media")
			notes = append(notes, fmt.Sprintf("[%s omitted: exceeds size limit]", ref.Kind))
		case err != nil:
			log.Error().Err(err).Str("file_id", ref.FileID).Msg("Failed to materialize media")
			notes = append(notes, fmt.Sprintf("[%s omitted: download failed]", ref.Kind))
		default:
			assets = append(assets, asset)
		}
	}
	defer b.pipeline.Cleanup(assets)

	if len(notes) > 0 {
		out.Text = appendLine(out.Text, strings.Join(notes, "\n"))
	}

	if ev.ReplyToID != "" {
		anchor, err := b.resolveReplyAnchor(ctx, ev, route, destPort)
		if err != nil {
			log.Debug().Err(err).Msg("Degrading reply to plain send")
		} else {
			out.ReplyTo = anchor
		}
	}

	attachments := b.pipeline.Attach(assets)
	if len(attachments) == 0 {
		sentID, err := destPort.SendText(ctx, route.Target, out)
		if err != nil {
			log.Error().Err(err).
				Str("target_channel", string(route.Target)).
				Msg("Failed to relay message")
			b.sendFailureNotice(ctx, log, destPort, route.Target)
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		b.storeCorrelation(ctx, log, route.Partition, ev, sentID)
		log.Info().
			Str("target_channel", string(route.Target)).
			Str("sent_id", string(sentID)).
			Bool("header", showHeader).
			Bool("reply", out.ReplyTo != "").
			Msg("Relayed message")
		return nil
	}

	return b.relayAttachments(ctx, log, ev, route, destPort, out, attachments)
}

// relayAttachments sends each attachment sequentially with the configured
// delay. A single failing attachment is replaced with a fallback notice and
// the rest proceed.
func (b *Bridge) relayAttachments(ctx context.Context, log zerolog.Logger, ev InboundEvent, route Route, destPort Port, out OutboundText, attachments []media.Attachment) error {
	var firstErr error
	for i, att := range attachments {
		sentID, err := destPort.SendAttachment(ctx, route.Target, out, att)
		if err != nil {
			log.Warn().Err(err).
				Str("attachment", att.Name).
				Str("target_channel", string(route.Target)).
				Msg("Failed to send attachment, sending fallback notice")
			fallback := out
			fallback.Text = appendLine(out.Text, attachmentFailureNote(ev.Platform.Peer(), att.Name))
			if _, ferr := destPort.SendText(ctx, route.Target, fallback); ferr != nil {
				log.Error().Err(ferr).Msg("Failed to send attachment fallback notice")
				if firstErr == nil {
					firstErr = err
				}
			}
		} else {
			b.storeCorrelation(ctx, log, route.Partition, ev, sentID)
			log.Info().
				Str("target_channel", string(route.Target)).
				Str("sent_id", string(sentID)).
				Str("attachment", att.Name).
				Msg("Relayed attachment")
		}
		if i < len(attachments)-1 {
			sleepCtx(ctx, b.sendDelay)
		}
	}
	if firstErr != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, firstErr)
	}
	return nil
}

// formatOutbound builds the destination text: announcer pass-through when it
// applies (Discord origin only), otherwise the generic path with an optional
// sender header.
func (b *Bridge) formatOutbound(ev InboundEvent, showHeader bool) OutboundText {
	if ev.Platform == PlatformDiscord {
		if b.announcerRewrite && telegramfmt.IsAnnouncer(ev.SenderUsername, ev.SenderName, ev.Content) {
			if msg, ok := telegramfmt.Rewrite(ev.Content, b.renderAnnouncerHeader); ok {
				return OutboundText{Text: msg.Text, DisableLinkPreview: msg.DisableLinkPreview}
			}
		}
		mentions := make([]telegramfmt.Mention, 0, len(ev.Mentions))
		for _, m := range ev.Mentions {
			mentions = append(mentions, telegramfmt.Mention{UserID: string(m.UserID), DisplayName: m.DisplayName})
		}
		text := telegramfmt.Format(ev.Content, mentions)
		if showHeader {
			text = prependHeader(telegramfmt.Header(b.pickIcon(), ev.SenderName), text)
		}
		return OutboundText{Text: text}
	}

	mentions := make([]discordfmt.Mention, 0, len(ev.Mentions))
	for _, m := range ev.Mentions {
		mentions = append(mentions, discordfmt.Mention{Token: m.Token, DisplayName: m.DisplayName})
	}
	text := discordfmt.Format(ev.Content, mentions)
	if showHeader {
		text = prependHeader(discordfmt.Header(b.pickIcon(), ev.SenderName), text)
	}
	return OutboundText{Text: text}
}

// resolveReplyAnchor maps the origin-side reply target to its destination
// counterpart and verifies it still exists. Any failure degrades the relay
// to a plain send.
func (b *Bridge) resolveReplyAnchor(ctx context.Context, ev InboundEvent, route Route, destPort Port) (MessageID, error) {
	var target string
	var err error
	switch ev.Platform {
	case PlatformDiscord:
		target, err = b.store.ToTelegram(ctx, route.Partition, string(ev.ReplyToID))
	case PlatformTelegram:
		target, err = b.store.ToDiscord(ctx, route.Partition, string(ev.ReplyToID))
	}
	if err != nil {
		return "", err
	}
	if err := destPort.VerifyMessage(ctx, route.Target, MessageID(target)); err != nil {
		return "", fmt.Errorf("destination message %s unavailable: %w", target, err)
	}
	return MessageID(target), nil
}

// storeCorrelation records the new message pair. Write failures are logged
// and swallowed: losing a record only degrades future replies.
func (b *Bridge) storeCorrelation(ctx context.Context, log zerolog.Logger, partition string, ev InboundEvent, sentID MessageID) {
	var err error
	if ev.Platform == PlatformDiscord {
		err = b.store.Put(ctx, partition, string(ev.MessageID), string(sentID))
	} else {
		err = b.store.Put(ctx, partition, string(sentID), string(ev.MessageID))
	}
	if err != nil {
		log.Error().Err(err).
			Str("partition", partition).
			Str("sent_id", string(sentID)).
			Msg("Failed to store correlation, future replies to this message will degrade")
	}
}

// sendFailureNotice posts a best-effort plain-text notice on the destination
// channel after a failed relay. Its own failure is only logged.
func (b *Bridge) sendFailureNotice(ctx context.Context, log zerolog.Logger, destPort Port, target ChannelID) {
	notice := OutboundText{Text: "⚠️ A message could not be relayed."}
	if _, err := destPort.SendText(ctx, target, notice); err != nil {
		log.Debug().Err(err).Msg("Failed to send relay failure notice")
	}
}

func attachmentFailureNote(dest Platform, name string) string {
	if dest == PlatformTelegram {
		return "<code>Failed to send attachment: " + name + "</code>"
	}
	return "`Failed to send attachment: " + name + "`"
}

func prependHeader(header, text string) string {
	if text == "" {
		return header
	}
	return header + "\n" + text
}

func appendLine(text, line string) string {
	if text == "" {
		return line
	}
	return text + "\n" + line
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
