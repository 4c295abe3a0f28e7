package cache

import (
	"fmt"
	"strconv"
	"strings"
)

// Resource names used for per-resource TTLs and metric labels
const (
	ResourceDashboard     = "dashboard"
	ResourceFeed          = "feed"
	ResourceTrending      = "trending"
	ResourceTicker        = "ticker"
	ResourceConversations = "conversations"
	ResourceConversation  = "conversation"
	ResourceUsers         = "users"
)

// DashboardKey is the key of the dashboard analytics payload
func DashboardKey() string {
	return ResourceDashboard
}

// FeedPageKey builds the key of one personalized feed page
func FeedPageKey(page int) string {
	return fmt.Sprintf("%s:page:%d", ResourceFeed, page)
}

// TrendingKey builds the key of the trending list for a limit
func TrendingKey(limit int) string {
	return ResourceTrending + ":" + strconv.Itoa(limit)
}

// TickerKey builds the key of one live market snapshot. Symbols are upper-cased.
func TickerKey(symbol string) string {
	return ResourceTicker + ":" + strings.ToUpper(strings.TrimSpace(symbol))
}

// ConversationsKey is the key of the conversation list
func ConversationsKey() string {
	return "messages:" + ResourceConversations
}

// ConversationKey builds the key of a thread with one user
func ConversationKey(userID int64) string {
	return "messages:" + ResourceConversation + ":" + strconv.FormatInt(userID, 10)
}

// UsersKey is the key of the user directory
func UsersKey() string {
	return ResourceUsers + ":all"
}

// Resource maps a key to its resource name ("dashboard", "feed", "ticker", ...)
func Resource(key string) string {
	head, rest, found := strings.Cut(key, ":")
	if !found {
		return head
	}
	if head == "messages" {
		name, _, _ := strings.Cut(rest, ":")
		return name
	}
	return head
}
