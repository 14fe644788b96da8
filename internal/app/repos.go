package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/burstreply-backend/internal/data/repos"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

type Repos struct {
	Conversation repos.ConversationRepo
	Message      repos.MessageRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Conversation: repos.NewConversationRepo(db, log),
		Message:      repos.NewMessageRepo(db, log),
	}
}
