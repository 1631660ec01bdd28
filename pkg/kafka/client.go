// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"edu-forum-go/internal/config"
	"edu-forum-go/pkg/events"
	"edu-forum-go/pkg/log"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Producer 将讨论区消息事件写入 Kafka。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。cfg.Brokers 为逗号分隔的地址列表。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(splitBrokers(cfg.Brokers)...),
			Topic:    cfg.Topic,
			Balancer: &kafka.Hash{},
			// 异步写入，投递失败只记录日志
			Async: true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Errorf("Kafka 消息投递失败, count: %d, error: %v", len(messages), err)
				}
			},
		},
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", cfg.Topic)
	return p
}

// PublishMessages 发送一批消息事件，同一讨论的事件使用相同的 key 以保证分区内有序。
func (p *Producer) PublishMessages(ctx context.Context, evts ...events.MessagePosted) error {
	msgs := make([]kafka.Message, 0, len(evts))
	for _, ev := range evts {
		m, err := encodeMessagePosted(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close 刷新并关闭底层 writer。
func (p *Producer) Close() error {
	return p.writer.Close()
}

func encodeMessagePosted(ev events.MessagePosted) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(ev.DiscussionID), 10)),
		Value: value,
	}, nil
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
