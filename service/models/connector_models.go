/*
 * @module service/models/connector_models
 * @description 测量接入连接器配置模型，包含Kafka和MQTT消费配置及测量消息结构
 * @architecture 数据模型层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 连接配置 -> 消费启动 -> 消息解码 -> 测量提交
 * @rules 接入配置为显式类型化结构体，不使用自由格式map
 * @dependencies time
 * @refs service/ingest/
 */

package models

import "time"

// KafkaIngestConfig Kafka测量接入配置
type KafkaIngestConfig struct {
	Brokers        []string      `json:"brokers"`         // Kafka broker地址列表
	GroupID        string        `json:"group_id"`        // 消费者组ID
	Topics         []string      `json:"topics"`          // 订阅的主题列表
	MinBytes       int           `json:"min_bytes"`       // 最小拉取字节数
	MaxBytes       int           `json:"max_bytes"`       // 最大拉取字节数
	MaxWait        time.Duration `json:"max_wait"`        // 最大等待时间
	CommitInterval time.Duration `json:"commit_interval"` // 提交间隔
}

// MQTTIngestConfig MQTT测量接入配置
type MQTTIngestConfig struct {
	Broker       string        `json:"broker"`        // MQTT broker地址
	ClientID     string        `json:"client_id"`     // 客户端ID
	Username     string        `json:"username"`      // 用户名
	Password     string        `json:"password"`      // 密码
	CleanSession bool          `json:"clean_session"` // 清理会话
	KeepAlive    time.Duration `json:"keep_alive"`    // 保持连接时间
	Topics       []string      `json:"topics"`        // 订阅主题列表
	QoS          byte          `json:"qos"`           // QoS级别
}

// MeasurementMessage 测量接入消息，Kafka/MQTT通道共用
type MeasurementMessage struct {
	ComponentName string            `json:"component_name"`
	Dimensions    QualityDimensions `json:"dimensions"`
}
