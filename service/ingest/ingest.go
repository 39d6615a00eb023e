/*
 * @module service/ingest/ingest
 * @description 测量接入公共定义，包含测量提交回调和消息解码
 * @architecture 适配器模式 - 外部通道到内部测量提交的转换层
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 消息到达 -> 编码归一 -> JSON解码 -> 测量提交
 * @rules 非UTF-8的消息先按GBK转码再解码，解码失败只记录日志
 * @dependencies qualityhub-service/service/models, qualityhub-service/service/utils
 * @refs service/ingest/kafka_consumer.go, service/ingest/mqtt_consumer.go
 */

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"qualityhub-service/service/models"
	"qualityhub-service/service/utils"
)

// MeasurementSink 测量提交回调，接入通道解码成功后调用
type MeasurementSink func(ctx context.Context, componentName string, dims models.QualityDimensions, source string) error

var converter = utils.NewDataConverter()

// decodeMeasurement 把原始消息字节解码为测量消息
// 载荷不是合法UTF-8时先按GBK转码
func decodeMeasurement(payload []byte) (*models.MeasurementMessage, error) {
	if !utf8.Valid(payload) {
		converted, err := converter.ConvertEncoding(payload, "gbk", "utf-8")
		if err != nil {
			return nil, fmt.Errorf("GBK转码失败: %w", err)
		}
		payload = converted
	}

	var message models.MeasurementMessage
	if err := json.Unmarshal(payload, &message); err != nil {
		return nil, fmt.Errorf("解析测量消息失败: %w", err)
	}

	if message.ComponentName == "" {
		return nil, fmt.Errorf("测量消息缺少component_name")
	}

	return &message, nil
}
