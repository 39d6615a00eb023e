/*
 * @module service/metrics/prometheus
 * @description Prometheus指标定义与记录，暴露测量吞吐、组件质量水位、告警和分配台账指标
 * @architecture 观测层 - 通过/metrics端点暴露
 * @documentReference ai_docs/quality_hub_req.md
 * @stateFlow 业务事件 -> 指标记录 -> Prometheus抓取
 * @rules 指标记录不得影响业务主流程，记录函数不返回错误
 * @dependencies github.com/prometheus/client_golang
 * @refs main.go, service/init.go
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"qualityhub-service/service/models"
)

var (
	measurementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualityhub",
		Subsystem: "quality",
		Name:      "measurements_total",
		Help:      "接收的质量测量总数，按组件、来源和处理结果区分",
	}, []string{"component", "source", "status"})

	overallQuality = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qualityhub",
		Subsystem: "quality",
		Name:      "overall_score",
		Help:      "组件最近一次测量的加权总分",
	}, []string{"component"})

	historicalQuality = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "qualityhub",
		Subsystem: "quality",
		Name:      "historical_average_score",
		Help:      "组件历史均值的加权总分",
	}, []string{"component"})

	alertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualityhub",
		Subsystem: "quality",
		Name:      "alerts_total",
		Help:      "质量告警总数，按级别和维度区分",
	}, []string{"severity", "category"})

	allocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualityhub",
		Subsystem: "allocation",
		Name:      "records_total",
		Help:      "资源分配登记总数，按结果区分（recorded/duplicate/conflict/invalid）",
	}, []string{"result"})

	ruleEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qualityhub",
		Subsystem: "rules",
		Name:      "evaluations_total",
		Help:      "自定义规则脚本求值次数，按结果区分",
	}, []string{"status"})
)

// RecordMeasurement 记录一次测量处理结果
// source取api/kafka/mqtt，status取accepted/rejected
func RecordMeasurement(component, source, status string) {
	measurementsTotal.WithLabelValues(component, source, status).Inc()
}

// UpdateQualityGauges 按最新聚合结果更新组件质量水位
func UpdateQualityGauges(metrics *models.QualityMetrics) {
	overallQuality.WithLabelValues(metrics.ComponentName).Set(metrics.CurrentQuality.OverallQuality)
	historicalQuality.WithLabelValues(metrics.ComponentName).Set(metrics.HistoricalAverageQuality.OverallQuality)

	for _, alert := range metrics.QualityAlerts {
		alertsTotal.WithLabelValues(string(alert.Severity), string(alert.Category)).Inc()
	}
}

// RecordAllocation 记录一次分配台账操作结果
func RecordAllocation(result string) {
	allocationsTotal.WithLabelValues(result).Inc()
}

// RecordRuleEvaluation 记录一次规则脚本求值
func RecordRuleEvaluation(status string) {
	ruleEvaluations.WithLabelValues(status).Inc()
}
