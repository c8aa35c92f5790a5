// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"prima-facie-go/internal/config"
	"prima-facie-go/internal/events"
	"prima-facie-go/pkg/log"
	"prima-facie-go/pkg/tasks"
)

// Producer publishes NotificationEvents to the configured topic. It implements
// events.Publisher.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers(cfg.Brokers)...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	log.Infof("Kafka 生产者初始化成功, topic: %s", cfg.Topic)
	return &Producer{writer: w}
}

// Publish writes ev keyed by tenant so one firm's events stay ordered.
func (p *Producer) Publish(ctx context.Context, ev tasks.NotificationEvent) error {
	value, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.LawFirmID),
		Value: value,
	})
}

// Close flushes pending writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func encodeEvent(ev tasks.NotificationEvent) ([]byte, error) {
	if ev.EventType == "" || ev.LawFirmID == "" {
		return nil, errors.New("notification event requires eventType and lawFirmId")
	}
	return json.Marshal(ev)
}

func brokers(list string) []string {
	var out []string
	for _, b := range strings.Split(list, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// StartConsumer 启动一个 Kafka 消费者来处理通知事件，直到 ctx 结束。
// Every message is committed after it is handled: the engine reports its own
// failures and a failed proactive notification is not retried.
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor events.Processor, eventTimeout time.Duration) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg.Brokers),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return nil
			}
			return fmt.Errorf("从 Kafka 读取消息失败: %w", err)
		}

		handleMessage(ctx, m.Value, processor, eventTimeout)

		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handleMessage decodes and processes one message. Malformed payloads are
// logged and dropped.
func handleMessage(ctx context.Context, value []byte, processor events.Processor, timeout time.Duration) {
	var ev tasks.NotificationEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return
	}
	if ev.EventType == "" || ev.LawFirmID == "" {
		log.Warnf("忽略不完整的通知事件: %s", string(value))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := processor.Process(ctx, ev); err != nil {
		log.Errorw("处理通知事件失败", "eventType", ev.EventType, "lawFirmId", ev.LawFirmID, "matterId", ev.MatterID, "error", err)
	}
}
