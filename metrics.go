package viewangle

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricNamespace = "viewangle"

	STATUS_OK      = "ok"
	STATUS_FAILED  = "failed"
	STATUS_SKIPPED = "skipped"
)

// 批处理指标，运行结束后以node-exporter textfile格式写出。nil时各方法为空操作
type Metrics struct {
	reg          *prometheus.Registry
	images       *prometheus.CounterVec
	chunks       *prometheus.CounterVec
	rows         prometheus.Counter
	imageSeconds *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "images_total",
			Help:      "Processed orthophotos by outcome and failing stage.",
		}, []string{"status", "stage"}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "chunks_total",
			Help:      "Processed chunks by outcome.",
		}, []string{"status"}),
		rows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "rows_written_total",
			Help:      "Merged records persisted.",
		}),
		imageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "image_seconds",
			Help:      "Wall time per orthophoto.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"status"}),
	}
	m.reg.MustRegister(m.images, m.chunks, m.rows, m.imageSeconds)
	return m
}

func (m *Metrics) observeImage(res ImageResult) {
	if m == nil {
		return
	}
	status, stage := STATUS_OK, ""
	if res.Err != nil {
		status, stage = STATUS_FAILED, res.Stage
	}
	m.images.WithLabelValues(status, stage).Inc()
	m.imageSeconds.WithLabelValues(status).Observe(res.Elapsed.Seconds())
}

func (m *Metrics) observeChunk(rep ChunkReport) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(rep.Status()).Inc()
	if rep.Err == nil {
		m.rows.Add(float64(rep.Rows))
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// WriteTextfile 写出指标文件，path为空时不写
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}
