package domain

import "github.com/yungbote/burstreply-backend/internal/domain/conversation"

const (
	ConversationOpen   = conversation.StatusOpen
	ConversationClosed = conversation.StatusClosed

	MessageInbound  = conversation.DirectionInbound
	MessageOutbound = conversation.DirectionOutbound
)

type Conversation = conversation.Conversation
type Message = conversation.Message
