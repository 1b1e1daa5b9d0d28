// Copyright 2024-2026 Aiku AI

package bridge

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/denikryt/telegram-discord-bridge/pkg/correlation"
	"github.com/denikryt/telegram-discord-bridge/pkg/media"
)

// headerIcons is the fixed decorative marker set for sender headers. One is
// drawn uniformly per header.
var headerIcons = []string{
	"🐒", "🦍", "🐶", "🐩", "🐺", "🦝", "🐱", "🦁", "🐯", "🐆",
	"🐴", "🦄", "🦓", "🦌", "🐮", "🐷", "🐗", "🐏", "🐐", "🐫",
	"🦙", "🦒", "🐘", "🦏", "🦛", "🐭", "🐹", "🐰", "🦫", "🦔",
	"🦇", "🐻", "🐨", "🦥", "🦦", "🦨", "🦘", "🐔", "🐣", "🐦",
	"🐧", "🕊", "🦅", "🦆", "🦢", "🦉", "🦩", "🦚", "🦜", "🐳",
	"🐬", "🦭", "🐟", "🐠", "🐡", "🦈", "🐙", "🐌", "🦋", "🐛",
	"🐜", "🐞", "🦗", "🕷", "🦂", "🦟", "🪱", "🦠", "🐢", "🐍",
	"🦎", "🐊",
}

// Options configures relay behavior.
type Options struct {
	// AnnouncerRewrite enables the announcer pass-through path for Discord
	// messages matching the announcer identity or structure. Disabled, such
	// messages take the generic formatting path.
	AnnouncerRewrite bool
	// RenderAnnouncerHeader controls whether the announcer pass-through
	// re-emits the announcement's header line.
	RenderAnnouncerHeader bool
	// SendDelay is the fixed pause between sequential attachment sends,
	// a throttle for downstream rate limits.
	SendDelay time.Duration
}

// Bridge wires the router, tracker, correlation store and media pipeline
// together and drives the relay state machine for every inbound event.
type Bridge struct {
	router   *Router
	tracker  *Tracker
	store    correlation.Store
	pipeline *media.Pipeline
	ports    map[Platform]Port

	announcerRewrite      bool
	renderAnnouncerHeader bool
	sendDelay             time.Duration
	pickIcon              func() string
	log                   zerolog.Logger
}

// New creates a Bridge. Ports are registered separately because the
// connectors themselves depend on the bridge.
func New(router *Router, tracker *Tracker, store correlation.Store, pipeline *media.Pipeline, opts Options, log zerolog.Logger) *Bridge {
	return &Bridge{
		router:                router,
		tracker:               tracker,
		store:                 store,
		pipeline:              pipeline,
		ports:                 make(map[Platform]Port),
		announcerRewrite:      opts.AnnouncerRewrite,
		renderAnnouncerHeader: opts.RenderAnnouncerHeader,
		sendDelay:             opts.SendDelay,
		pickIcon: func() string {
			return headerIcons[rand.Intn(len(headerIcons))]
		},
		log: log.With().Str("component", "bridge").Logger(),
	}
}

// RegisterPort attaches a platform client to the bridge.
func (b *Bridge) RegisterPort(p Port) {
	b.ports[p.Platform()] = p
}

// NoteOwnMessage records the bridge's own account as the last sender on a
// channel. Connectors call this when the platform echoes one of the bridge's
// outbound messages back through its event stream.
func (b *Bridge) NoteOwnMessage(platform Platform, channel ChannelID) {
	port, ok := b.ports[platform]
	if !ok {
		return
	}
	b.tracker.Record(platform, channel, port.BotID())
}
