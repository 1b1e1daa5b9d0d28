// Copyright 2024-2026 Aiku AI

package bridge

import (
	"testing"
	"time"
)

const (
	tgChat = ChannelID("-100")
	dcChan = ChannelID("200")
	alice  = UserID("alice")
	bob    = UserID("bob")
	dcBot  = UserID("dc-bot")
)

// fixedTracker returns a Tracker with a controllable clock.
func fixedTracker(t *testing.T) (*Tracker, *time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestObserveFirstMessageShowsHeader(t *testing.T) {
	t.Parallel()
	tr, _ := fixedTracker(t)
	if !tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot) {
		t.Error("first message: got header=false, want true")
	}
}

func TestObserveSameSenderUninterrupted(t *testing.T) {
	t.Parallel()
	tr, now := fixedTracker(t)
	tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot)
	*now = now.Add(10 * time.Second)
	if tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot) {
		t.Error("same sender, bridge last on destination: got header=true, want false")
	}
}

func TestObserveDifferentSenderShowsHeader(t *testing.T) {
	t.Parallel()
	tr, now := fixedTracker(t)
	tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot)
	*now = now.Add(10 * time.Second)
	if !tr.Observe(PlatformTelegram, tgChat, dcChan, bob, dcBot) {
		t.Error("different sender: got header=false, want true")
	}
}

func TestObserveInterruptedOnDestination(t *testing.T) {
	t.Parallel()
	tr, now := fixedTracker(t)
	tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot)
	// Someone posts natively on the Discord side between Alice's messages.
	*now = now.Add(10 * time.Second)
	tr.Record(PlatformDiscord, dcChan, bob)
	*now = now.Add(10 * time.Second)
	if !tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot) {
		t.Error("destination interrupted: got header=false, want true")
	}
}

func TestObserveBurstWithoutDestinationState(t *testing.T) {
	t.Parallel()
	tr, now := fixedTracker(t)
	tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot)
	// Drop the destination record, as if its state never existed, keeping
	// the origin record. Messages inside the burst window still group.
	tr.mu.Lock()
	delete(tr.state[PlatformDiscord], dcChan)
	tr.mu.Unlock()
	*now = now.Add(500 * time.Millisecond)
	if tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot) {
		t.Error("burst without destination state: got header=true, want false")
	}
}

func TestObserveSlowWithoutDestinationState(t *testing.T) {
	t.Parallel()
	tr, now := fixedTracker(t)
	tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot)
	tr.mu.Lock()
	delete(tr.state[PlatformDiscord], dcChan)
	tr.mu.Unlock()
	*now = now.Add(2 * time.Second)
	if !tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot) {
		t.Error("slow message without destination state: got header=false, want true")
	}
}

func TestObserveExpiredStateShowsHeader(t *testing.T) {
	t.Parallel()
	tr, now := fixedTracker(t)
	tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot)
	*now = now.Add(6 * time.Minute)
	if !tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot) {
		t.Error("expired origin state: got header=false, want true")
	}
}

func TestObserveChannelsAreIndependent(t *testing.T) {
	t.Parallel()
	tr, now := fixedTracker(t)
	other := ChannelID("-999")
	tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot)
	*now = now.Add(10 * time.Second)
	if !tr.Observe(PlatformTelegram, other, dcChan, alice, dcBot) {
		t.Error("different origin channel: got header=false, want true")
	}
}

func TestObserveOppositeDirectionGroupsAcrossPlatforms(t *testing.T) {
	t.Parallel()
	tr, now := fixedTracker(t)
	// Alice talks on Telegram, then the conversation continues in the same
	// direction; the Discord side only ever saw the bridge post.
	tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot)
	*now = now.Add(time.Minute)
	if tr.Observe(PlatformTelegram, tgChat, dcChan, alice, dcBot) {
		t.Error("cross-platform run: got header=true, want false")
	}
}

func TestRecordSeedsLastSender(t *testing.T) {
	t.Parallel()
	tr, _ := fixedTracker(t)
	tr.Record(PlatformDiscord, dcChan, dcBot)
	tr.mu.Lock()
	st, ok := tr.state[PlatformDiscord][dcChan]
	tr.mu.Unlock()
	if !ok {
		t.Fatal("record: no state stored")
	}
	if st.userID != dcBot {
		t.Errorf("record: got user %q, want %q", st.userID, dcBot)
	}
}
