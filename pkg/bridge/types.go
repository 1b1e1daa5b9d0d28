// Copyright 2024-2026 Aiku AI

package bridge

import (
	"context"

	"github.com/denikryt/telegram-discord-bridge/pkg/media"
)

// Platform identifies one side of the bridge.
type Platform int

const (
	PlatformDiscord Platform = iota
	PlatformTelegram
)

func (p Platform) String() string {
	switch p {
	case PlatformDiscord:
		return "discord"
	case PlatformTelegram:
		return "telegram"
	default:
		return "unknown"
	}
}

// Peer returns the platform on the other side of the bridge.
func (p Platform) Peer() Platform {
	if p == PlatformDiscord {
		return PlatformTelegram
	}
	return PlatformDiscord
}

// Mention is a platform user mention appearing in a message body. Token is
// the literal text span of the mention; Discord events leave it empty and
// rely on the canonical <@id> token forms instead.
type Mention struct {
	UserID      UserID
	DisplayName string
	Token       string
}

// InboundEvent is a platform-neutral representation of one received message.
// Connectors convert native SDK events into this form before handing them to
// the bridge.
type InboundEvent struct {
	Platform  Platform
	ChannelID ChannelID
	MessageID MessageID
	SenderID  UserID
	// SenderName is the display name shown in headers; SenderUsername is the
	// account name, used for announcer identity matching.
	SenderName     string
	SenderUsername string
	Content        string
	// ReplyToID is the same-platform message being replied to, or empty.
	ReplyToID MessageID
	Mentions  []Mention
	Media     []media.Ref
}

// OutboundText is the payload for a single outbound send.
type OutboundText struct {
	Text string
	// ReplyTo is the destination-platform message to reply to, or empty.
	ReplyTo            MessageID
	DisableLinkPreview bool
}

// Port is the bridge's view of one platform client. Implementations wrap the
// native SDKs; tests inject fakes. All identifiers are opaque to the bridge.
type Port interface {
	Platform() Platform
	// BotID is the bridge's own account ID on this platform.
	BotID() UserID
	SendText(ctx context.Context, channel ChannelID, msg OutboundText) (MessageID, error)
	// SendAttachment sends one local file with msg.Text as its caption.
	SendAttachment(ctx context.Context, channel ChannelID, msg OutboundText, att media.Attachment) (MessageID, error)
	// VerifyMessage reports whether a message still exists on this platform.
	// Platforms without a fetch primitive may report nil and degrade replies
	// at send time instead.
	VerifyMessage(ctx context.Context, channel ChannelID, id MessageID) error
	// FetchMedia downloads the raw bytes for one of this platform's media
	// refs, returning the payload and the remote file name.
	FetchMedia(ctx context.Context, ref media.Ref) ([]byte, string, error)
}
