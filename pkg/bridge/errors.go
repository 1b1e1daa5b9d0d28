// Copyright 2024-2026 Aiku AI

package bridge

import "errors"

var (
	// ErrChannelMappingMissing means the source channel has no configured
	// counterpart. The event is dropped with a warning.
	ErrChannelMappingMissing = errors.New("no channel mapping for source channel")

	// ErrPartitionMissing means the channel pair exists but carries no
	// correlation partition name. The event is dropped with a warning.
	ErrPartitionMissing = errors.New("no correlation partition for channel pair")

	// ErrSendFailed wraps a destination platform send failure. No
	// correlation record is written for the event.
	ErrSendFailed = errors.New("destination send failed")
)
