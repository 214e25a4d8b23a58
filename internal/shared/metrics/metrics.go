package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	sharesCreatedTotal atomic.Uint64
	sharesRevokedTotal atomic.Uint64
	sharesSweptTotal   atomic.Uint64
	sharedViewsTotal   atomic.Uint64
	notifySentTotal    atomic.Uint64
	notifyFailedTotal  atomic.Uint64
	notifyDroppedTotal atomic.Uint64
	uploadsTotal       atomic.Uint64
	extractFailedTotal atomic.Uint64

	exportsTotal     = newCounterVec("format")
	exportFailures   = newCounterVec("format")
	shareTrackTotal  = newCounterVec("platform")
	exportDurationMs = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500})
)

// IncExport counts a successful export in the given format.
func IncExport(format string) { exportsTotal.Inc(format) }

// IncExportFailed counts a failed export in the given format.
func IncExportFailed(format string) { exportFailures.Inc(format) }

// ObserveExportDurationMs records how long rendering took.
func ObserveExportDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	exportDurationMs.Observe(value)
}

func IncShareCreated()         { sharesCreatedTotal.Add(1) }
func IncShareRevoked()         { sharesRevokedTotal.Add(1) }
func AddSharesSwept(n int64)   { sharesSweptTotal.Add(uint64(max(n, 0))) }
func IncSharedView()           { sharedViewsTotal.Add(1) }
func IncShareTracked(p string) { shareTrackTotal.Inc(p) }
func IncNotifySent()           { notifySentTotal.Add(1) }
func IncNotifyFailed()         { notifyFailedTotal.Add(1) }
func IncNotifyDropped()        { notifyDroppedTotal.Add(1) }
func IncUpload()               { uploadsTotal.Add(1) }
func IncExtractFailed()        { extractFailedTotal.Add(1) }

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounterVec(&buf, "resume_exports_total", "Resume exports by format", exportsTotal.Snapshot())
	writeCounterVec(&buf, "resume_export_failures_total", "Failed resume exports by format", exportFailures.Snapshot())
	writeHistogram(&buf, "resume_export_duration_ms", "Render duration in milliseconds", exportDurationMs.Snapshot())
	writeCounter(&buf, "resume_uploads_total", "Uploaded resume files", uploadsTotal.Load())
	writeCounter(&buf, "resume_extract_failures_total", "Uploads whose text extraction failed", extractFailedTotal.Load())
	writeCounter(&buf, "share_links_created_total", "Share tokens issued", sharesCreatedTotal.Load())
	writeCounter(&buf, "share_links_revoked_total", "Share tokens revoked", sharesRevokedTotal.Load())
	writeCounter(&buf, "share_links_swept_total", "Expired share tokens cleared by the sweeper", sharesSweptTotal.Load())
	writeCounter(&buf, "shared_resume_views_total", "Resumes read through a share token", sharedViewsTotal.Load())
	writeCounterVec(&buf, "share_tracked_total", "Share clicks by platform", shareTrackTotal.Snapshot())
	writeCounter(&buf, "notifications_sent_total", "Notifications delivered", notifySentTotal.Load())
	writeCounter(&buf, "notifications_failed_total", "Notifications that failed", notifyFailedTotal.Load())
	writeCounter(&buf, "notifications_dropped_total", "Notifications dropped because the dispatcher was saturated", notifyDroppedTotal.Load())
	return buf.String()
}

type counterVec struct {
	label  string
	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec(label string) *counterVec {
	return &counterVec{label: label, values: make(map[string]uint64)}
}

func (v *counterVec) Inc(value string) {
	if value == "" {
		value = "unknown"
	}
	v.mu.Lock()
	v.values[value]++
	v.mu.Unlock()
}

type labeledValue struct {
	label string
	value string
	count uint64
}

func (v *counterVec) Snapshot() []labeledValue {
	v.mu.Lock()
	out := make([]labeledValue, 0, len(v.values))
	for k, n := range v.values {
		out = append(out, labeledValue{label: v.label, value: k, count: n})
	}
	v.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket that holds it; buckets are
// accumulated when rendered.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeCounterVec(buf *bytes.Buffer, name, help string, values []labeledValue) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	for _, v := range values {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, v.label, v.value, v.count)
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
