/**
 * @module data_converter_test
 * @description 数据转换工具单元测试
 * @architecture 测试层
 * @documentReference 参考 ai_docs/quality_hub_req.md 接入层小节
 */

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFloat(t *testing.T) {
	dc := NewDataConverter()

	v, err := dc.ToFloat(0.85)
	require.NoError(t, err)
	assert.InDelta(t, 0.85, v, 1e-9)

	v, err = dc.ToFloat("0.7")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, v, 1e-9)

	v, err = dc.ToFloat(" 0.5 ")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-9)

	v, err = dc.ToFloat(int64(1))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)

	_, err = dc.ToFloat(nil)
	assert.Error(t, err)

	_, err = dc.ToFloat([]string{"x"})
	assert.Error(t, err)
}

func TestConvertEncoding_GBKRoundTrip(t *testing.T) {
	dc := NewDataConverter()
	original := []byte("组件质量测量")

	gbk, err := dc.ConvertEncoding(original, "utf-8", "gbk")
	require.NoError(t, err)
	assert.NotEqual(t, original, gbk)

	back, err := dc.ConvertEncoding(gbk, "gbk", "utf-8")
	require.NoError(t, err)
	assert.Equal(t, original, back)
}

func TestConvertEncoding_Unsupported(t *testing.T) {
	dc := NewDataConverter()
	data := []byte("plain ascii")

	result, err := dc.ConvertEncoding(data, "latin1", "utf-8")
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestParseTime(t *testing.T) {
	dc := NewDataConverter()

	parsed, err := dc.ParseTime("2026-08-30T10:00:00Z", nil)
	require.NoError(t, err)
	assert.Equal(t, 2026, parsed.Year())

	parsed, err = dc.ParseTime("2026-08-30 10:00:00", nil)
	require.NoError(t, err)
	assert.Equal(t, time.August, parsed.Month())

	_, err = dc.ParseTime("not a time", nil)
	assert.Error(t, err)

	_, err = dc.ParseTime("", nil)
	assert.Error(t, err)
}

func TestNormalizeString(t *testing.T) {
	dc := NewDataConverter()
	assert.Equal(t, "a b c", dc.NormalizeString("  a  b \t c "))
	assert.Equal(t, "", dc.NormalizeString("   "))
}

func TestToString(t *testing.T) {
	dc := NewDataConverter()
	assert.Equal(t, "spark", dc.ToString("spark"))
	assert.Equal(t, "3", dc.ToString(3))
	assert.Equal(t, "0.5", dc.ToString(0.5))
	assert.Equal(t, "true", dc.ToString(true))
	assert.Equal(t, "", dc.ToString(nil))
}
