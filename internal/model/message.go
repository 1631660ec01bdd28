package model

import "time"

// 对话上下文中的角色。
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// BotDisplayName 是机器人回复在列表中展示的用户名。
const BotDisplayName = "Bot"

// Message 对应于数据库中的 'messages' 表。
// 机器人回复与触发它的消息使用同一个 UserID，仅靠 IsBot 区分。
type Message struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
	DiscussionID uint      `gorm:"index;not null" json:"discussionId"`
	UserID       uint      `gorm:"index;not null" json:"userId"`
	IsBot        bool      `gorm:"not null;default:false" json:"isBot"`
}

// ChatRole 返回消息在对话上下文中的角色。
func (m Message) ChatRole() string {
	if m.IsBot {
		return ChatRoleAssistant
	}
	return ChatRoleUser
}

// MessageDTO 是消息列表接口返回的单条记录，附带展示用的用户名。
type MessageDTO struct {
	ID        uint    `json:"id"`
	Content   string  `json:"content"`
	CreatedAt ISOTime `json:"created_at"`
	UserID    uint    `json:"user_id"`
	IsBot     bool    `json:"is_bot"`
	Username  string  `json:"username"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Message) TableName() string {
	return "messages"
}
