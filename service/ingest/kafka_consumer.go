/*
 * @module service/ingest/kafka_consumer
 * @description Kafka测量接入消费者，订阅测量主题并把消息提交到质量跟踪核心
 * @architecture 适配器模式 - 封装第三方Kafka客户端
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 连接建立 -> 消息消费 -> 解码提交 -> 连接断开
 * @rules 单条消息解码或提交失败只记录日志，不中断消费
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/init.go, service/models/connector_models.go
 */

package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"qualityhub-service/service/metrics"
	"qualityhub-service/service/models"

	"github.com/segmentio/kafka-go"
)

// KafkaConsumer Kafka测量消费者
type KafkaConsumer struct {
	config  *models.KafkaIngestConfig
	sink    MeasurementSink
	readers map[string]*kafka.Reader // 按topic分组
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewKafkaConsumer 创建Kafka测量消费者
func NewKafkaConsumer(config *models.KafkaIngestConfig, sink MeasurementSink) *KafkaConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &KafkaConsumer{
		config:  config,
		sink:    sink,
		readers: make(map[string]*kafka.Reader),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 为每个订阅主题启动一个消费协程
func (kc *KafkaConsumer) Start() error {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if kc.started {
		return nil
	}

	for _, topic := range kc.config.Topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:        kc.config.Brokers,
			Topic:          topic,
			GroupID:        kc.config.GroupID,
			MinBytes:       kc.config.MinBytes,
			MaxBytes:       kc.config.MaxBytes,
			MaxWait:        kc.config.MaxWait,
			CommitInterval: kc.config.CommitInterval,
		})
		kc.readers[topic] = reader

		kc.wg.Add(1)
		go kc.consumeLoop(topic, reader)
	}

	kc.started = true
	slog.Info("Kafka测量消费者已启动", "brokers", kc.config.Brokers, "topics", kc.config.Topics)
	return nil
}

// consumeLoop 单主题消费循环
func (kc *KafkaConsumer) consumeLoop(topic string, reader *kafka.Reader) {
	defer kc.wg.Done()

	for {
		msg, err := reader.ReadMessage(kc.ctx)
		if err != nil {
			if kc.ctx.Err() != nil {
				slog.Info("停止消费Kafka主题", "topic", topic)
				return
			}
			slog.Error("读取Kafka消息失败", "topic", topic, "error", err)
			time.Sleep(time.Second)
			continue
		}

		kc.handleMessage(topic, msg)
	}
}

// handleMessage 解码并提交单条消息
func (kc *KafkaConsumer) handleMessage(topic string, msg kafka.Message) {
	message, err := decodeMeasurement(msg.Value)
	if err != nil {
		slog.Error("Kafka测量消息解码失败", "topic", topic, "offset", msg.Offset, "error", err)
		metrics.RecordMeasurement("unknown", "kafka", "rejected")
		return
	}

	if err := kc.sink(kc.ctx, message.ComponentName, message.Dimensions, "kafka"); err != nil {
		slog.Error("Kafka测量提交失败",
			"topic", topic,
			"component", message.ComponentName,
			"offset", msg.Offset,
			"error", err)
		metrics.RecordMeasurement(message.ComponentName, "kafka", "rejected")
		return
	}

	metrics.RecordMeasurement(message.ComponentName, "kafka", "accepted")
}

// Stop 停止消费并关闭全部reader
func (kc *KafkaConsumer) Stop() {
	kc.mu.Lock()
	defer kc.mu.Unlock()

	if !kc.started {
		return
	}

	kc.cancel()
	kc.wg.Wait()

	for topic, reader := range kc.readers {
		if err := reader.Close(); err != nil {
			slog.Error("关闭Kafka消费者失败", "topic", topic, "error", err)
		}
	}

	kc.started = false
	slog.Info("Kafka测量消费者已停止")
}
