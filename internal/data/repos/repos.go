package repos

import (
	"github.com/yungbote/burstreply-backend/internal/data/repos/conversation"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ConversationRepo = conversation.ConversationRepo
type MessageRepo = conversation.MessageRepo

var (
	ErrNotFound  = conversation.ErrNotFound
	ErrDuplicate = conversation.ErrDuplicate
)

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return conversation.NewConversationRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return conversation.NewMessageRepo(db, baseLog)
}
