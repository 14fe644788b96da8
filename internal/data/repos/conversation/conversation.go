package conversation

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/burstreply-backend/internal/domain"
	"github.com/yungbote/burstreply-backend/internal/platform/dbctx"
	"github.com/yungbote/burstreply-backend/internal/platform/logger"
)

type ConversationRepo interface {
	Create(dbc dbctx.Context, row *types.Conversation) error
	Get(dbc dbctx.Context, id string) (*types.Conversation, error)
	// TransitionStatus moves id from -> to and reports whether a row changed.
	TransitionStatus(dbc dbctx.Context, id string, from string, to string) (bool, error)
	// Delete removes the conversation and every message it owns.
	Delete(dbc dbctx.Context, id string) error
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: log.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *conversationRepo) Create(dbc dbctx.Context, row *types.Conversation) error {
	if row == nil || strings.TrimSpace(row.ID) == "" {
		return fmt.Errorf("missing conversation id")
	}
	now := time.Now().UTC()
	if row.Status == "" {
		row.Status = types.ConversationOpen
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return translate(r.tx(dbc).Omit("Messages").Create(row).Error)
}

func (r *conversationRepo) Get(dbc dbctx.Context, id string) (*types.Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("missing conversation id")
	}
	var out types.Conversation
	if err := r.tx(dbc).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (r *conversationRepo) TransitionStatus(dbc dbctx.Context, id string, from string, to string) (bool, error) {
	if strings.TrimSpace(id) == "" {
		return false, fmt.Errorf("missing conversation id")
	}
	res := r.tx(dbc).
		Model(&types.Conversation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *conversationRepo) Delete(dbc dbctx.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("missing conversation id")
	}
	return r.tx(dbc).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&types.Message{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&types.Conversation{})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
