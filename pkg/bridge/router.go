// Copyright 2024-2026 Aiku AI

package bridge

import "fmt"

// ChannelPair is one static mapping between a Discord channel and a Telegram
// chat, sharing a named correlation partition. Pairs are loaded once at
// startup and read-only afterwards.
type ChannelPair struct {
	Discord   ChannelID
	Telegram  ChannelID
	Partition string
}

// Route is the resolved destination for an inbound event.
type Route struct {
	Target    ChannelID
	Partition string
}

// Router resolves channel pairs and correlation partitions from the static
// mapping. It is pure and safe to call from either execution context.
type Router struct {
	byDiscord  map[ChannelID]ChannelPair
	byTelegram map[ChannelID]ChannelPair
}

// NewRouter builds a Router from the configured channel pairs.
func NewRouter(pairs []ChannelPair) *Router {
	r := &Router{
		byDiscord:  make(map[ChannelID]ChannelPair, len(pairs)),
		byTelegram: make(map[ChannelID]ChannelPair, len(pairs)),
	}
	for _, pair := range pairs {
		r.byDiscord[pair.Discord] = pair
		r.byTelegram[pair.Telegram] = pair
	}
	return r
}

// Resolve maps a source channel on the given platform to its destination
// channel and correlation partition.
func (r *Router) Resolve(source Platform, channel ChannelID) (Route, error) {
	var pair ChannelPair
	var ok bool
	var target ChannelID
	switch source {
	case PlatformDiscord:
		pair, ok = r.byDiscord[channel]
		target = pair.Telegram
	case PlatformTelegram:
		pair, ok = r.byTelegram[channel]
		target = pair.Discord
	}
	if !ok {
		return Route{}, fmt.Errorf("%w: %s channel %s", ErrChannelMappingMissing, source, channel)
	}
	if pair.Partition == "" {
		return Route{}, fmt.Errorf("%w: %s channel %s", ErrPartitionMissing, source, channel)
	}
	return Route{Target: target, Partition: pair.Partition}, nil
}
