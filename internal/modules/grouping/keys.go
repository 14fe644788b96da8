package grouping

const (
	bufferPrefix = "buffer:"
	groupPrefix  = "group:"
	lockPrefix   = "group-lock:"
)

func bufferKey(conversationID, messageID string) string {
	return bufferScanPrefix(conversationID) + messageID
}

// Conversation ids may contain ':', so a scan of this prefix can also match a
// longer id. Entries carry their conversation id to disambiguate.
func bufferScanPrefix(conversationID string) string {
	return bufferPrefix + conversationID + ":"
}

func groupKey(conversationID string) string { return groupPrefix + conversationID }

func lockKey(conversationID string) string { return lockPrefix + conversationID }
