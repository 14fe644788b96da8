package db

import (
	"fmt"

	types "github.com/yungbote/burstreply-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Conversation{},
		&types.Message{},
	)
}

func EnsureMessageIndexes(db *gorm.DB) error {
	// Aggregation reads inbound rows of one conversation by id set, ordered by event time.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_message_conversation_direction_ts
		ON message (conversation_id, direction, timestamp);
	`).Error; err != nil {
		return fmt.Errorf("create idx_message_conversation_direction_ts: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureMessageIndexes(s.db); err != nil {
		s.log.Error("Message index migration failed", "error", err)
		return err
	}
	return nil
}
