// Copyright 2024-2026 Aiku AI

package bridge

import (
	"sync"
	"time"
)

const (
	// groupingTTL is how long a last-sender record stays usable. Expired
	// entries are purged lazily on the next relay through the origin side.
	groupingTTL = 5 * time.Minute
	// burstWindow treats rapid same-sender messages as one turn when the
	// destination channel has no recorded state yet.
	burstWindow = time.Second
)

type senderState struct {
	userID UserID
	at     time.Time
}

// Tracker decides whether a relayed message needs a visible sender header or
// can be appended silently to an ongoing run from the same speaker, even when
// that run has crossed platforms.
//
// It keeps one last-sender entry per channel on each platform side. Since the
// two platforms share no notion of "last message", the tracker counts the
// bridge's own echoes: if the bridge was the last thing to post on the
// destination channel, the conversation there has not been interrupted.
//
// Both execution contexts (the Discord run loop and the Telegram poll worker)
// read and write this state, so every decision is one critical section.
type Tracker struct {
	mu    sync.Mutex
	state map[Platform]map[ChannelID]senderState
	now   func() time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		state: map[Platform]map[ChannelID]senderState{
			PlatformDiscord:  {},
			PlatformTelegram: {},
		},
		now: time.Now,
	}
}

// Observe runs the grouping heuristic for one inbound message and records the
// resulting state. It returns true when the outbound message must carry a
// sender header.
//
// destBot is the bridge's own account ID on the destination platform; the
// tracker records it as the destination channel's last sender because the
// bridge is about to post there.
func (t *Tracker) Observe(origin Platform, originChannel, destChannel ChannelID, sender, destBot UserID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	dest := origin.Peer()

	t.purgeLocked(origin, now)

	show := true
	if last, ok := t.state[origin][originChannel]; ok && last.userID == sender {
		if destLast, ok := t.state[dest][destChannel]; ok {
			// The bridge being the last poster on the other side means
			// nobody interrupted the run since the previous relay.
			show = destLast.userID != destBot
		} else {
			show = now.Sub(last.at) >= burstWindow
		}
	}

	t.state[origin][originChannel] = senderState{userID: sender, at: now}
	t.state[dest][destChannel] = senderState{userID: destBot, at: now}
	return show
}

// Record notes a message observed on a channel without making a grouping
// decision. Connectors call this when the platform echoes the bridge's own
// outbound message back, so the origin side knows the bridge posted last.
func (t *Tracker) Record(p Platform, channel ChannelID, user UserID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.purgeLocked(p, t.now())
	t.state[p][channel] = senderState{userID: user, at: t.now()}
}

func (t *Tracker) purgeLocked(p Platform, now time.Time) {
	for ch, st := range t.state[p] {
		if now.Sub(st.at) > groupingTTL {
			delete(t.state[p], ch)
		}
	}
}
