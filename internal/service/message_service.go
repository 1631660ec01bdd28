package service

import (
	"context"
	"edu-forum-go/internal/model"
	"edu-forum-go/internal/pipeline"
	"edu-forum-go/internal/repository"
	"edu-forum-go/pkg/events"
	"edu-forum-go/pkg/log"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EventPublisher 发布已提交的消息事件，由 Kafka 生产者实现。
type EventPublisher interface {
	PublishMessages(ctx context.Context, evts ...events.MessagePosted) error
}

// MessageService 定义了讨论消息的业务操作。
type MessageService interface {
	List(ctx context.Context, discussionID uint) ([]model.MessageDTO, error)
	Post(ctx context.Context, discussionID uint, author *model.User, content string) (*PostResult, error)
}

// PostResult 描述一次发帖最终写入的消息与流程状态。
type PostResult struct {
	State pipeline.State
	// Messages 依次为用户消息与（如有）机器人回复。
	Messages []*model.Message
	// Fallback 为 true 表示机器人回复使用了固定文本。
	Fallback bool
}

type messageService struct {
	discussionRepo repository.DiscussionRepository
	messageRepo    repository.MessageRepository
	bot            *pipeline.BotResponder
	publisher      EventPublisher
}

// NewMessageService 创建一个新的 MessageService 实例。publisher 可以为 nil。
func NewMessageService(
	discussionRepo repository.DiscussionRepository,
	messageRepo repository.MessageRepository,
	bot *pipeline.BotResponder,
	publisher EventPublisher,
) MessageService {
	return &messageService{
		discussionRepo: discussionRepo,
		messageRepo:    messageRepo,
		bot:            bot,
		publisher:      publisher,
	}
}

func (s *messageService) ensureDiscussion(discussionID uint) error {
	if _, err := s.discussionRepo.FindByID(discussionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDiscussionNotFound
		}
		return fmt.Errorf("failed to load discussion: %w", err)
	}
	return nil
}

// List 按创建顺序返回讨论中的全部消息，机器人回复的展示名固定为 "Bot"。
func (s *messageService) List(ctx context.Context, discussionID uint) ([]model.MessageDTO, error) {
	if err := s.ensureDiscussion(discussionID); err != nil {
		return nil, err
	}
	rows, err := s.messageRepo.ListWithAuthors(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	out := make([]model.MessageDTO, 0, len(rows))
	for _, r := range rows {
		username := r.Username
		if r.IsBot || username == "" {
			username = model.BotDisplayName
		}
		out = append(out, model.MessageDTO{
			ID:        r.ID,
			Content:   r.Content,
			CreatedAt: model.ISOTime(r.CreatedAt),
			UserID:    r.UserID,
			IsBot:     r.IsBot,
			Username:  username,
		})
	}
	return out, nil
}

// Post 写入用户消息；若包含触发词，则基于包含该消息在内的最近上下文生成机器人回复，
// 并与用户消息在同一事务中提交。补全服务的失败不会返回给调用方。
func (s *messageService) Post(ctx context.Context, discussionID uint, author *model.User, content string) (*PostResult, error) {
	if err := s.ensureDiscussion(discussionID); err != nil {
		return nil, err
	}
	log.Infof("[MessageService] %s, discussionID: %d, userID: %d", pipeline.StateReceived, discussionID, author.ID)

	inbound := &model.Message{
		Content:      content,
		DiscussionID: discussionID,
		UserID:       author.ID,
		CreatedAt:    time.Now().UTC(),
	}

	if !s.bot.Triggered(content) {
		if err := s.messageRepo.CreateAll(ctx, inbound); err != nil {
			return nil, fmt.Errorf("failed to save message: %w", err)
		}
		s.publish(ctx, inbound)
		return &PostResult{State: pipeline.StatePlainPosted, Messages: []*model.Message{inbound}}, nil
	}

	// 用户消息已暂存，计入最近消息窗口；补全调用期间不持有事务
	recent := []model.Message{*inbound}
	if window := s.bot.Window(); window > 1 {
		older, err := s.messageRepo.FindRecent(ctx, discussionID, window-1)
		if err != nil {
			return nil, fmt.Errorf("failed to load conversation context: %w", err)
		}
		recent = append(recent, older...)
	}

	log.Infof("[MessageService] %s, discussionID: %d, userID: %d, context: %d", pipeline.StateAwaitingCompletion, discussionID, author.ID, len(recent))
	reply := s.bot.Reply(ctx, pipeline.ReplyRequest{
		DiscussionID: discussionID,
		UserID:       author.ID,
		Recent:       recent,
		Content:      content,
	})

	botMessage := &model.Message{
		Content:      reply.Content,
		DiscussionID: discussionID,
		UserID:       author.ID,
		IsBot:        true,
		CreatedAt:    time.Now().UTC(),
	}
	if !botMessage.CreatedAt.After(inbound.CreatedAt) {
		botMessage.CreatedAt = inbound.CreatedAt.Add(time.Millisecond)
	}

	// 调用方断开连接时也要完成提交
	persistCtx := context.WithoutCancel(ctx)
	if err := s.messageRepo.CreateAll(persistCtx, inbound, botMessage); err != nil {
		return nil, fmt.Errorf("failed to save messages: %w", err)
	}
	s.publish(persistCtx, inbound, botMessage)

	return &PostResult{
		State:    pipeline.StateBotReplied,
		Messages: []*model.Message{inbound, botMessage},
		Fallback: reply.Fallback,
	}, nil
}

func (s *messageService) publish(ctx context.Context, messages ...*model.Message) {
	if s.publisher == nil {
		return
	}
	evts := make([]events.MessagePosted, 0, len(messages))
	for _, m := range messages {
		evts = append(evts, events.MessagePosted{
			MessageID:    m.ID,
			DiscussionID: m.DiscussionID,
			UserID:       m.UserID,
			IsBot:        m.IsBot,
			Content:      m.Content,
			CreatedAt:    m.CreatedAt,
		})
	}
	if err := s.publisher.PublishMessages(ctx, evts...); err != nil {
		log.Warnf("[MessageService] 发布消息事件失败, discussionID: %d, error: %v", messages[0].DiscussionID, err)
	}
}
