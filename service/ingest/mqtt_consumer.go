/*
 * @module service/ingest/mqtt_consumer
 * @description MQTT测量接入消费者，订阅测量主题并把消息提交到质量跟踪核心
 * @architecture 适配器模式 - 封装第三方MQTT客户端
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 连接建立 -> 主题订阅 -> 解码提交 -> 连接断开
 * @rules 自动重连由客户端负责，单条消息失败只记录日志
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs service/init.go, service/models/connector_models.go
 */

package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"qualityhub-service/service/metrics"
	"qualityhub-service/service/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConsumer MQTT测量消费者
type MQTTConsumer struct {
	config *models.MQTTIngestConfig
	sink   MeasurementSink
	client mqtt.Client
	ctx    context.Context
	cancel context.CancelFunc
}

// NewMQTTConsumer 创建MQTT测量消费者
func NewMQTTConsumer(config *models.MQTTIngestConfig, sink MeasurementSink) *MQTTConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &MQTTConsumer{
		config: config,
		sink:   sink,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 连接broker并订阅全部测量主题
func (mc *MQTTConsumer) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(mc.config.Broker)
	opts.SetClientID(mc.config.ClientID)
	opts.SetCleanSession(mc.config.CleanSession)
	if mc.config.KeepAlive > 0 {
		opts.SetKeepAlive(mc.config.KeepAlive)
	}
	if mc.config.Username != "" {
		opts.SetUsername(mc.config.Username)
	}
	if mc.config.Password != "" {
		opts.SetPassword(mc.config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		slog.Error("MQTT连接丢失，等待自动重连", "error", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		slog.Info("MQTT连接成功", "broker", mc.config.Broker)
	})

	mc.client = mqtt.NewClient(opts)
	if token := mc.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("连接MQTT broker失败: %w", token.Error())
	}

	for _, topic := range mc.config.Topics {
		if token := mc.client.Subscribe(topic, mc.config.QoS, mc.messageHandler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("订阅主题 %s 失败: %w", topic, token.Error())
		}
		slog.Info("MQTT测量消费者已订阅主题", "topic", topic)
	}

	return nil
}

// messageHandler 解码并提交单条消息
func (mc *MQTTConsumer) messageHandler(client mqtt.Client, msg mqtt.Message) {
	message, err := decodeMeasurement(msg.Payload())
	if err != nil {
		slog.Error("MQTT测量消息解码失败", "topic", msg.Topic(), "error", err)
		metrics.RecordMeasurement("unknown", "mqtt", "rejected")
		return
	}

	if err := mc.sink(mc.ctx, message.ComponentName, message.Dimensions, "mqtt"); err != nil {
		slog.Error("MQTT测量提交失败",
			"topic", msg.Topic(),
			"component", message.ComponentName,
			"error", err)
		metrics.RecordMeasurement(message.ComponentName, "mqtt", "rejected")
		return
	}

	metrics.RecordMeasurement(message.ComponentName, "mqtt", "accepted")
}

// Stop 断开MQTT连接
func (mc *MQTTConsumer) Stop() {
	mc.cancel()

	if mc.client != nil && mc.client.IsConnected() {
		for _, topic := range mc.config.Topics {
			mc.client.Unsubscribe(topic)
		}
		mc.client.Disconnect(250)
	}

	slog.Info("MQTT测量消费者已停止")
}
