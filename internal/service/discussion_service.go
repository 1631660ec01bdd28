package service

import (
	"edu-forum-go/internal/model"
	"edu-forum-go/internal/repository"
	"edu-forum-go/pkg/log"
	"fmt"
)

// DiscussionService 定义了讨论相关的业务操作。
type DiscussionService interface {
	List() ([]model.DiscussionDTO, error)
	Create(creator *model.User, title, content string) (*model.Discussion, error)
}

type discussionService struct {
	discussionRepo repository.DiscussionRepository
}

// NewDiscussionService 创建一个新的 DiscussionService 实例。
func NewDiscussionService(discussionRepo repository.DiscussionRepository) DiscussionService {
	return &discussionService{discussionRepo: discussionRepo}
}

// List 返回全部讨论。
func (s *discussionService) List() ([]model.DiscussionDTO, error) {
	discussions, err := s.discussionRepo.FindAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	out := make([]model.DiscussionDTO, 0, len(discussions))
	for _, d := range discussions {
		out = append(out, model.DiscussionDTO{
			ID:        d.ID,
			Title:     d.Title,
			Content:   d.Content,
			CreatedAt: model.ISOTime(d.CreatedAt),
			TeacherID: d.TeacherID,
		})
	}
	return out, nil
}

// Create 创建一个新的讨论，仅教师可以执行。
func (s *discussionService) Create(creator *model.User, title, content string) (*model.Discussion, error) {
	if !creator.IsTeacher() {
		return nil, ErrNotTeacher
	}
	discussion := &model.Discussion{
		Title:     title,
		Content:   content,
		TeacherID: creator.ID,
	}
	if err := s.discussionRepo.Create(discussion); err != nil {
		return nil, fmt.Errorf("failed to create discussion: %w", err)
	}
	log.Infof("[DiscussionService] 讨论创建成功, discussionID: %d, teacherID: %d", discussion.ID, creator.ID)
	return discussion, nil
}
