// Copyright 2024-2026 Aiku AI

package bridge

import "strconv"

// ChannelID is an opaque platform channel identifier. Discord channel IDs
// are snowflake strings; Telegram chat IDs are stringified int64s.
type ChannelID string

// MessageID is an opaque platform message identifier.
type MessageID string

// UserID is an opaque platform user identifier.
type UserID string

// MakeTelegramChannelID creates a ChannelID from a Telegram chat ID.
func MakeTelegramChannelID(chatID int64) ChannelID {
	return ChannelID(strconv.FormatInt(chatID, 10))
}

// ParseTelegramChannelID extracts the Telegram chat ID from a ChannelID.
func ParseTelegramChannelID(id ChannelID) (int64, error) {
	return strconv.ParseInt(string(id), 10, 64)
}

// MakeTelegramMessageID creates a MessageID from a Telegram message ID.
func MakeTelegramMessageID(messageID int) MessageID {
	return MessageID(strconv.Itoa(messageID))
}

// ParseTelegramMessageID extracts the Telegram message ID from a MessageID.
func ParseTelegramMessageID(id MessageID) (int, error) {
	return strconv.Atoi(string(id))
}

// MakeTelegramUserID creates a UserID from a Telegram user ID.
func MakeTelegramUserID(userID int64) UserID {
	return UserID(strconv.FormatInt(userID, 10))
}

// MakeDiscordChannelID creates a ChannelID from a Discord channel snowflake.
func MakeDiscordChannelID(channelID string) ChannelID {
	return ChannelID(channelID)
}

// MakeDiscordMessageID creates a MessageID from a Discord message snowflake.
func MakeDiscordMessageID(messageID string) MessageID {
	return MessageID(messageID)
}

// MakeDiscordUserID creates a UserID from a Discord user snowflake.
func MakeDiscordUserID(userID string) UserID {
	return UserID(userID)
}
