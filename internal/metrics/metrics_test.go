package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は名前でメトリクスファミリーを探す。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// counterByLabel はラベル値ごとのカウンタ値を返す。
func counterByLabel(mf *dto.MetricFamily) map[string]float64 {
	out := make(map[string]float64)
	for _, m := range mf.GetMetric() {
		out[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	return out
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordSessionValidation_CountsByOutcome は検証結果ごとにカウントされることを検証する。
func TestRecordSessionValidation_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionValidation(OutcomeValid)
	c.RecordSessionValidation(OutcomeValid)
	c.RecordSessionValidation(OutcomeTransport)

	got := counterByLabel(findMetricFamily(t, reg, "nebulastream_session_validations_total"))
	if got[OutcomeValid] != 2 {
		t.Errorf("validations{outcome=valid} = %v, want 2", got[OutcomeValid])
	}
	if got[OutcomeTransport] != 1 {
		t.Errorf("validations{outcome=transport} = %v, want 1", got[OutcomeTransport])
	}
}

// TestRecordLockMismatch_CountsBySource はロック不一致がsource別にカウントされることを検証する。
func TestRecordLockMismatch_CountsBySource(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLockMismatch("login")
	c.RecordLockMismatch("revalidate")
	c.RecordLockMismatch("login")

	got := counterByLabel(findMetricFamily(t, reg, "nebulastream_account_lock_mismatch_total"))
	if got["login"] != 2 || got["revalidate"] != 1 {
		t.Errorf("lock mismatch counters = %v", got)
	}
}

// TestRecordSessionPhase_CountsTransitions は状態遷移が遷移先別にカウントされることを検証する。
func TestRecordSessionPhase_CountsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionPhase("authenticated")
	c.RecordSessionPhase("anonymous")

	got := counterByLabel(findMetricFamily(t, reg, "nebulastream_session_transitions_total"))
	if len(got) != 2 {
		t.Errorf("expected 2 label combinations, got %v", got)
	}
}

// TestRecordChannelLoad_SetsGauge はチャンネル取得結果とゲージが更新されることを検証する。
func TestRecordChannelLoad_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordChannelLoad(true, 3)

	gauge := findMetricFamily(t, reg, "nebulastream_channels_loaded").GetMetric()[0].GetGauge().GetValue()
	if gauge != 3 {
		t.Errorf("channels_loaded = %v, want 3", gauge)
	}

	c.RecordChannelLoad(false, 0)

	gauge = findMetricFamily(t, reg, "nebulastream_channels_loaded").GetMetric()[0].GetGauge().GetValue()
	if gauge != 0 {
		t.Errorf("channels_loaded after failure = %v, want 0", gauge)
	}
	got := counterByLabel(findMetricFamily(t, reg, "nebulastream_channel_loads_total"))
	if got["success"] != 1 || got["failure"] != 1 {
		t.Errorf("channel loads = %v", got)
	}
}

// TestRecordAPIStatus_IncrementsCounterWithLabel はHTTPステータスカウンタがラベル付きで増加することを検証する。
func TestRecordAPIStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAPIStatus(200)
	c.RecordAPIStatus(200)
	c.RecordAPIStatus(401)

	got := counterByLabel(findMetricFamily(t, reg, "nebulastream_api_status_total"))
	if got["200"] != 2 {
		t.Errorf("api_status_total{status_code=200} = %v, want 2", got["200"])
	}
	if got["401"] != 1 {
		t.Errorf("api_status_total{status_code=401} = %v, want 1", got["401"])
	}
}

// TestRecordAPILatency_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordAPILatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAPILatency(100 * time.Millisecond)
	c.RecordAPILatency(2 * time.Second)

	h := findMetricFamily(t, reg, "nebulastream_api_latency_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionValidation(OutcomeRejected)
	c.RecordLockMismatch("login")
	c.RecordAPIStatus(200)
	c.RecordAPILatency(500 * time.Millisecond)
	c.RecordChannelLoad(true, 1)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"nebulastream_session_validations_total",
		"nebulastream_account_lock_mismatch_total",
		"nebulastream_api_status_total",
		"nebulastream_api_latency_seconds",
		"nebulastream_channel_loads_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordSessionValidation(OutcomeValid)
	c2.RecordSessionValidation(OutcomeValid)
	c2.RecordSessionValidation(OutcomeValid)

	val1 := counterByLabel(findMetricFamily(t, reg1, "nebulastream_session_validations_total"))[OutcomeValid]
	val2 := counterByLabel(findMetricFamily(t, reg2, "nebulastream_session_validations_total"))[OutcomeValid]

	if val1 != 1 {
		t.Errorf("reg1 validations = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 validations = %v, want 2", val2)
	}
}

// TestNop_DoesNotPanic はNopがすべての記録呼び出しを受け付けることを検証する。
func TestNop_DoesNotPanic(t *testing.T) {
	var c MetricsCollector = Nop{}
	c.RecordSessionValidation(OutcomeValid)
	c.RecordLockMismatch("login")
	c.RecordSessionPhase("anonymous")
	c.RecordChannelLoad(true, 1)
	c.RecordAPIStatus(200)
	c.RecordAPILatency(time.Second)
}
