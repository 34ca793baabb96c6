package prometheus

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/discochess/qrcache/internal/stats"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not found in registry", name)
	return nil
}

func TestNew_NilRegistry(t *testing.T) {
	c := New(nil)
	if c.registry == nil || c.gatherer == nil {
		t.Fatal("New(nil) should create a registry")
	}
}

func TestCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter(stats.MetricCacheHits, 5)
	c.IncCounter(stats.MetricCacheHits, 3)

	mf := gather(t, reg, stats.MetricCacheHits)
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 8 {
		t.Errorf("counter value = %v, want 8", got)
	}
	if got := mf.GetHelp(); got != stats.Help(stats.MetricCacheHits) {
		t.Errorf("help = %q, want %q", got, stats.Help(stats.MetricCacheHits))
	}
}

func TestCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge(stats.MetricCacheEntries, 42)
	c.SetGauge(stats.MetricCacheEntries, 7)

	mf := gather(t, reg, stats.MetricCacheEntries)
	if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
		t.Errorf("gauge value = %v, want 7", got)
	}
}

func TestCollector_ObserveHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveHistogram(stats.MetricRenderSeconds, 0.002)
	c.ObserveHistogram(stats.MetricRenderSeconds, 0.02)
	c.ObserveHistogram(stats.MetricRenderSeconds, 0.2)

	h := gather(t, reg, stats.MetricRenderSeconds).GetMetric()[0].GetHistogram()
	if got := h.GetSampleCount(); got != 3 {
		t.Errorf("histogram count = %v, want 3", got)
	}
	if got := len(h.GetBucket()); got != len(RenderBuckets) {
		t.Errorf("bucket count = %d, want %d", got, len(RenderBuckets))
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncCounter("concurrent_counter", 1)
				c.SetGauge("concurrent_gauge", int64(j))
				c.ObserveHistogram("concurrent_histogram", float64(j))
			}
		}()
	}
	wg.Wait()

	if got := gather(t, reg, "concurrent_counter").GetMetric()[0].GetCounter().GetValue(); got != 1000 {
		t.Errorf("counter value = %v, want 1000", got)
	}
	if got := gather(t, reg, "concurrent_histogram").GetMetric()[0].GetHistogram().GetSampleCount(); got != 1000 {
		t.Errorf("histogram count = %v, want 1000", got)
	}
}

func TestCollector_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()

	existing := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preexisting_counter",
		Help: "preexisting_counter",
	})
	reg.MustRegister(existing)
	existing.Add(100)

	c := New(reg)
	c.IncCounter("preexisting_counter", 5)

	if got := gather(t, reg, "preexisting_counter").GetMetric()[0].GetCounter().GetValue(); got != 105 {
		t.Errorf("counter value = %v, want 105", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := New(nil)
	c.IncCounter(stats.MetricRequests, 1)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), stats.MetricRequests+" 1") {
		t.Errorf("metrics output missing %s:\n%s", stats.MetricRequests, body)
	}
}
