// Package pipeline 实现了讨论区消息的机器人回复流程：触发检测、上下文构建与补全调用。
package pipeline

import (
	"context"
	"edu-forum-go/internal/config"
	"edu-forum-go/internal/model"
	"edu-forum-go/pkg/llm"
	"edu-forum-go/pkg/log"
	"strings"
)

// FallbackReply 是补全服务调用失败时写入的固定回复。
const FallbackReply = "Sorry, I can't respond right now. Please try again later."

// 默认的触发词与上下文窗口大小。
const (
	DefaultTrigger       = "@bot"
	DefaultContextWindow = 5
)

// State 描述一次发帖在流程中的状态。
// 每次发帖从 StateReceived 开始，终止于 StatePlainPosted 或 StateBotReplied。
type State string

const (
	StateReceived           State = "RECEIVED"
	StatePlainPosted        State = "PLAIN_POSTED"
	StateAwaitingCompletion State = "AWAITING_COMPLETION"
	StateBotReplied         State = "BOT_REPLIED"
)

// ReplyRequest 携带一次机器人回复所需的全部输入。
type ReplyRequest struct {
	DiscussionID uint
	UserID       uint
	// Recent 为讨论中的最近消息（含本次暂存的用户消息），按 created_at 倒序排列。
	Recent  []model.Message
	Content string
}

// Reply 是机器人回复的结果。Fallback 为 true 表示补全失败、Content 为固定回复。
type Reply struct {
	Content  string
	Fallback bool
}

// BotResponder 封装了机器人回复所需的依赖，启动时构建一次，之后只读。
type BotResponder struct {
	llmClient llm.Client
	trigger   string
	window    int
	gen       *llm.GenerationParams
}

// NewBotResponder 创建一个新的 BotResponder 实例。
func NewBotResponder(llmClient llm.Client, botCfg config.BotConfig, genCfg config.LLMGenerationConfig) *BotResponder {
	trigger := strings.ToLower(strings.TrimSpace(botCfg.Trigger))
	if trigger == "" {
		trigger = DefaultTrigger
	}
	window := botCfg.ContextWindow
	if window <= 0 {
		window = DefaultContextWindow
	}
	temperature := genCfg.Temperature
	maxTokens := genCfg.MaxTokens
	return &BotResponder{
		llmClient: llmClient,
		trigger:   trigger,
		window:    window,
		gen:       &llm.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens},
	}
}

// Triggered 判断消息内容是否包含触发词（不区分大小写）。
func (b *BotResponder) Triggered(content string) bool {
	return strings.Contains(strings.ToLower(content), b.trigger)
}

// Window 返回上下文窗口的消息条数上限。
func (b *BotResponder) Window() int {
	return b.window
}

// BuildContext 将倒序的最近消息转为时间正序的角色消息，并在末尾追加当前消息。
// 当前消息即使与最近一条消息内容相同也不会去重。
func BuildContext(recent []model.Message, current string) []llm.Message {
	msgs := make([]llm.Message, 0, len(recent)+1)
	for i := len(recent) - 1; i >= 0; i-- {
		msgs = append(msgs, llm.Message{Role: recent[i].ChatRole(), Content: recent[i].Content})
	}
	return append(msgs, llm.Message{Role: model.ChatRoleUser, Content: current})
}

// Reply 调用补全服务生成回复。任何失败都会被记录并替换为 FallbackReply，从不向上返回错误。
func (b *BotResponder) Reply(ctx context.Context, req ReplyRequest) Reply {
	recent := req.Recent
	if len(recent) > b.window {
		recent = recent[:b.window]
	}
	messages := BuildContext(recent, req.Content)

	content, err := b.llmClient.ChatMessages(ctx, messages, b.gen)
	if err != nil {
		log.Errorf("[BotResponder] 补全服务调用失败, discussionID: %d, userID: %d, error: %v", req.DiscussionID, req.UserID, err)
		return Reply{Content: FallbackReply, Fallback: true}
	}
	return Reply{Content: content}
}
