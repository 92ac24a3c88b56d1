// Copyright (c) 2025 BVK Chaitanya

package gobs

type TelegramState struct {
	// UserChatIDMap remembers the chat id of every authorized user that has
	// messaged the bot, so that notifications can be pushed to them.
	UserChatIDMap map[string]int64
}
