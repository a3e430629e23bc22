// Package ingest 从消息队列消费评分事件，写入评分库。
//
// 评分事件是唯一的数据入口：后端业务产生评分后投递到 Kafka，
// 本服务消费落库，离线重训按水位线感知增量。
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rushteam/movierec/core"
)

// RatingEvent 是评分事件的线上格式。
type RatingEvent struct {
	UserID     int64     `json:"user_id"`
	ItemID     int64     `json:"item_id"`
	Rating     float64   `json:"rating"`
	ObservedAt time.Time `json:"observed_at"`
}

// Sink 是摄入的落库接口（MemoryRatingStore.Append 满足它）。
type Sink interface {
	Append(r core.Rating)
}

// KafkaConsumer 消费评分事件流。
// 畸形/越界事件记 DATA_INTEGRITY 丢弃并打日志，绝不让脏数据进评分库。
type KafkaConsumer struct {
	reader *kafka.Reader
	bounds core.RatingBounds
	sink   Sink
	logger *slog.Logger
}

func NewKafkaConsumer(brokers []string, groupID, topic string, bounds core.RatingBounds, sink Sink, logger *slog.Logger) (*KafkaConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer requires group id")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer requires topic")
	}
	if logger == nil {
		logger = slog.Default()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &KafkaConsumer{reader: reader, bounds: bounds, sink: sink, logger: logger}, nil
}

// Poll 最多拉取 max 条事件并落库，返回成功落库的条数。
// 读超时返回已拉到的部分，留给下一轮。
func (c *KafkaConsumer) Poll(ctx context.Context, max int) (int, error) {
	if max <= 0 {
		max = 1
	}
	accepted := 0
	for i := 0; i < max; i++ {
		readCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
		msg, err := c.reader.ReadMessage(readCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				return accepted, nil
			case errors.Is(err, context.Canceled):
				return accepted, ctx.Err()
			default:
				return accepted, err
			}
		}
		if c.ingest(msg.Value) {
			accepted++
		}
	}
	return accepted, nil
}

// Run 循环消费直到 ctx 取消。消费错误打日志退避后继续。
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		n, err := c.Poll(ctx, 100)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("ingest poll failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		if n > 0 {
			c.logger.Debug("ratings ingested", "count", n)
		}
	}
}

func (c *KafkaConsumer) ingest(payload []byte) bool {
	var ev RatingEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		c.logger.Warn("rating event dropped",
			"code", core.ErrorCodeDataIntegrity, "error", err)
		return false
	}
	r := core.Rating{
		UserID:     ev.UserID,
		ItemID:     ev.ItemID,
		Value:      ev.Rating,
		ObservedAt: ev.ObservedAt,
	}
	if err := c.bounds.Validate(r); err != nil {
		c.logger.Warn("rating event dropped",
			"code", core.ErrorCodeDataIntegrity,
			"user_id", ev.UserID, "item_id", ev.ItemID, "rating", ev.Rating,
			"error", err)
		return false
	}
	c.sink.Append(r)
	return true
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
