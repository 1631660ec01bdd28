// Package events defines the payloads published to Kafka.
package events

import "time"

// MessagePosted is emitted for every message row committed by the message pipeline.
type MessagePosted struct {
	MessageID    uint      `json:"message_id"`
	DiscussionID uint      `json:"discussion_id"`
	UserID       uint      `json:"user_id"`
	IsBot        bool      `json:"is_bot"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}
