// Copyright 2024-2026 Aiku AI

// Package bridge implements the Telegram-Discord relay engine: channel
// routing, cross-platform message-identity correlation, sender grouping,
// formatting dispatch and the per-event relay state machine.
//
// # Core Types
//
// [Bridge] is the neutral orchestrator both platform connectors depend on.
// Connectors hand it [InboundEvent] values and implement [Port] for outbound
// sends; the bridge never imports a platform SDK, which breaks the mutual
// dependency between the two platform-facing halves and keeps the relay
// testable with fake ports.
//
// [Router] resolves the destination channel and correlation partition from
// the static channel mapping.
//
// [Tracker] owns the per-channel last-sender state behind a single mutex and
// implements the cross-platform echo-suppression heuristic that decides when
// a relayed message needs a visible sender header.
//
// # Failure Containment
//
// Every failure is contained per event: a failing relay logs, cleans up its
// media files and returns, and must never affect subsequent or concurrent
// events. Losing a correlation write only degrades future replies to plain
// sends.
//
// # Sub-packages
//
//   - telegramfmt converts Discord content to Telegram HTML, including the
//     announcer pass-through rewrite.
//   - discordfmt converts Telegram content to Discord markdown.
package bridge
