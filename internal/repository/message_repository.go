package repository

import (
	"context"
	"edu-forum-go/internal/model"

	"gorm.io/gorm"
)

// MessageWithAuthor 是消息与作者用户名的联表查询结果。
// 作者不存在时 Username 为空字符串。
type MessageWithAuthor struct {
	model.Message
	Username string
}

// MessageRepository 定义了讨论消息的持久化操作。
type MessageRepository interface {
	// CreateAll 在同一个事务中插入全部消息，任一失败则全部回滚。
	CreateAll(ctx context.Context, messages ...*model.Message) error
	// FindRecent 按 created_at 倒序返回讨论中最近的至多 limit 条消息。
	FindRecent(ctx context.Context, discussionID uint, limit int) ([]model.Message, error)
	// ListWithAuthors 按创建顺序返回讨论中的全部消息及作者用户名。
	ListWithAuthors(ctx context.Context, discussionID uint) ([]MessageWithAuthor, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) CreateAll(ctx context.Context, messages ...*model.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range messages {
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *messageRepository) FindRecent(ctx context.Context, discussionID uint, limit int) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("discussion_id = ?", discussionID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) ListWithAuthors(ctx context.Context, discussionID uint) ([]MessageWithAuthor, error) {
	var rows []MessageWithAuthor
	err := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.*, COALESCE(users.username, '') AS username").
		Joins("LEFT JOIN users ON users.id = messages.user_id").
		Where("messages.discussion_id = ?", discussionID).
		Order("messages.created_at ASC").
		Order("messages.id ASC").
		Scan(&rows).Error
	return rows, err
}
