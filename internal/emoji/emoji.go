package emoji

import "sync/atomic"

// emojiMap holds emoji and fallback mappings
var emojiMap = map[string][2]string{
	// [emoji, fallback]
	"error":      {"❌", "[ERR]"},
	"warning":    {"⚠️", "[WRN]"},
	"info":       {"ℹ️", "[INF]"},
	"success":    {"✅", "[OK]"},
	"book":       {"📚", "[BOOK]"},
	"search":     {"🔍", "[SRCH]"},
	"like":       {"👍", "[+]"},
	"dislike":    {"👎", "[-]"},
	"speech":     {"🔊", "[TTS]"},
	"cover":      {"🖼️", "[IMG]"},
	"mic":        {"🎙️", "[STT]"},
	"index":      {"🗂️", "[IDX]"},
	"history":    {"🕘", "[HIST]"},
	"refused":    {"🚫", "[NO]"},
	"brain":      {"🧠", "[AI]"},
	"watch":      {"👀", "[WATCH]"},
	"statistics": {"📊", "[STATS]"},
	"door":       {"🚪", "[EXIT]"},
}

var emojiDisabled atomic.Bool

// SetEmojiDisabled sets the global emoji disabled state
func SetEmojiDisabled(disabled bool) {
	emojiDisabled.Store(disabled)
}

// IsEmojiDisabled returns the current emoji disabled state
func IsEmojiDisabled() bool {
	return emojiDisabled.Load()
}

// GetEmoji returns emoji or fallback based on no-emoji setting
func GetEmoji(key string) string {
	if mapping, exists := emojiMap[key]; exists {
		if emojiDisabled.Load() {
			return mapping[1]
		}
		return mapping[0]
	}
	return "[?]"
}

// Prefix returns the emoji for key followed by a space
func Prefix(key string) string {
	return GetEmoji(key) + " "
}
