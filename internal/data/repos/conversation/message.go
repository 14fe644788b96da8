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

type MessageRepo interface {
	Create(dbc dbctx.Context, row *types.Message) error
	// ListInboundByIDs returns inbound messages of conversationID whose id is in ids, oldest event first.
	ListInboundByIDs(dbc dbctx.Context, conversationID string, ids []string) ([]*types.Message, error)
	ListByConversation(dbc dbctx.Context, conversationID string, limit int) ([]*types.Message, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *messageRepo) Create(dbc dbctx.Context, row *types.Message) error {
	if row == nil || strings.TrimSpace(row.ID) == "" {
		return fmt.Errorf("missing message id")
	}
	if strings.TrimSpace(row.ConversationID) == "" {
		return fmt.Errorf("missing conversation_id")
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return translate(r.tx(dbc).Create(row).Error)
}

func (r *messageRepo) ListInboundByIDs(dbc dbctx.Context, conversationID string, ids []string) ([]*types.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("missing conversation_id")
	}
	if len(ids) == 0 {
		return []*types.Message{}, nil
	}
	var out []*types.Message
	if err := r.tx(dbc).
		Model(&types.Message{}).
		Where("conversation_id = ? AND direction = ? AND id IN ?", conversationID, types.MessageInbound, ids).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) ListByConversation(dbc dbctx.Context, conversationID string, limit int) ([]*types.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("missing conversation_id")
	}
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	var out []*types.Message
	if err := r.tx(dbc).
		Model(&types.Message{}).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Order("id ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
