package repository

import (
	"edu-forum-go/internal/model"

	"gorm.io/gorm"
)

// DiscussionRepository 接口定义了讨论的数据操作方法。
type DiscussionRepository interface {
	Create(discussion *model.Discussion) error
	FindAll() ([]model.Discussion, error)
	FindByID(id uint) (*model.Discussion, error)
}

type discussionRepository struct {
	db *gorm.DB
}

// NewDiscussionRepository 创建一个新的 DiscussionRepository 实例。
func NewDiscussionRepository(db *gorm.DB) DiscussionRepository {
	return &discussionRepository{db: db}
}

// Create 在数据库中插入一个新的讨论记录。
func (r *discussionRepository) Create(discussion *model.Discussion) error {
	return r.db.Create(discussion).Error
}

// FindAll 按创建顺序返回全部讨论。
func (r *discussionRepository) FindAll() ([]model.Discussion, error) {
	var discussions []model.Discussion
	err := r.db.Order("id ASC").Find(&discussions).Error
	return discussions, err
}

// FindByID 根据 ID 查找讨论，不存在时返回 gorm.ErrRecordNotFound。
func (r *discussionRepository) FindByID(id uint) (*model.Discussion, error) {
	var discussion model.Discussion
	if err := r.db.First(&discussion, id).Error; err != nil {
		return nil, err
	}
	return &discussion, nil
}
