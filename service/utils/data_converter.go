/**
 * @module data_converter
 * @description 数据转换工具模块，负责测量消息的编码转换、数值转换和时间解析
 * @architecture 工具函数模式，提供无状态转换方法集合
 * @documentReference 参考 ai_docs/quality_hub_req.md 接入层小节
 * @stateFlow 无状态转换：输入 -> 转换逻辑 -> 输出
 * @rules
 *   - 转换操作需要处理异常情况
 *   - 编码转换需要支持GBK/GB2312来源的测量消息
 *   - 时间转换按多种常见格式尝试解析
 * @dependencies
 *   - golang.org/x/text: 编码转换
 *   - time: 时间处理
 *   - strconv: 字符串转换
 * @refs
 *   - service/ingest/*: 测量消息接入
 */

package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// DataConverter 数据转换器
type DataConverter struct{}

// NewDataConverter 创建新的数据转换器实例
func NewDataConverter() *DataConverter {
	return &DataConverter{}
}

// ToString 转换为字符串
func (dc *DataConverter) ToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%g", v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		if data, err := json.Marshal(value); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", value)
	}
}

// ToFloat 转换为浮点数，测量维度字段统一经此转换
func (dc *DataConverter) ToFloat(value interface{}) (float64, error) {
	if value == nil {
		return 0, fmt.Errorf("nil值无法转换为浮点数")
	}

	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int, int8, int16, int32, int64:
		return float64(reflect.ValueOf(v).Int()), nil
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflect.ValueOf(v).Uint()), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("无法将类型 %T 转换为浮点数", value)
	}
}

// ConvertEncoding 编码转换
// 支持GBK/GB2312与UTF-8之间的互转，其余编码组合原样返回
func (dc *DataConverter) ConvertEncoding(data []byte, fromEncoding, toEncoding string) ([]byte, error) {
	from := strings.ToLower(fromEncoding)
	to := strings.ToLower(toEncoding)

	switch {
	case (from == "gbk" || from == "gb2312") && to == "utf-8":
		decoder := simplifiedchinese.GBK.NewDecoder()
		result, _, err := transform.Bytes(decoder, data)
		return result, err
	case from == "utf-8" && (to == "gbk" || to == "gb2312"):
		encoder := simplifiedchinese.GBK.NewEncoder()
		result, _, err := transform.Bytes(encoder, data)
		return result, err
	}

	return data, nil
}

// ParseTime 解析时间字符串，依次尝试用户提供的格式和常见默认格式
func (dc *DataConverter) ParseTime(timeStr string, layouts []string) (time.Time, error) {
	if timeStr == "" {
		return time.Time{}, fmt.Errorf("时间字符串为空")
	}

	defaultLayouts := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006/01/02 15:04:05",
	}

	allLayouts := append(layouts, defaultLayouts...)
	for _, layout := range allLayouts {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("无法解析时间字符串: %s", timeStr)
}

// NormalizeString 标准化字符串，去除首尾空格并压缩连续空白
func (dc *DataConverter) NormalizeString(str string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(str)), " ")
}
