package conversation

import "time"

const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Conversation is created from a NEW_CONVERSATION event and only ever moves OPEN -> CLOSED.
type Conversation struct {
	ID     string `gorm:"type:varchar(128);primaryKey" json:"id"`
	Status string `gorm:"column:status;type:varchar(16);not null;default:'OPEN';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Messages []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

func (Conversation) TableName() string { return "conversation" }

func (c *Conversation) IsOpen() bool {
	return c != nil && c.Status == StatusOpen
}
