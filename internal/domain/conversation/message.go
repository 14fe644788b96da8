package conversation

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DirectionInbound  = "INBOUND"
	DirectionOutbound = "OUTBOUND"
)

// Message is immutable once written. Timestamp is the source event time, CreatedAt the storage time.
type Message struct {
	ID             string `gorm:"type:varchar(128);primaryKey" json:"id"`
	ConversationID string `gorm:"type:varchar(128);not null;index:idx_message_conversation_ts,priority:1" json:"conversation_id"`
	Direction      string `gorm:"column:direction;type:varchar(16);not null;index" json:"type"`
	Content        string `gorm:"column:content;type:text;not null" json:"content"`

	Timestamp time.Time      `gorm:"column:timestamp;not null;index:idx_message_conversation_ts,priority:2" json:"timestamp"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Message) TableName() string { return "message" }
