package imagecache

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/discochess/qrcache/internal/stats"
)

// newImage returns an RGBA image whose RGBACost is w*h*4.
func newImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// fixedCost charges the image width, which makes cost arithmetic in tests obvious.
func fixedCost(img image.Image) int64 {
	if img == nil {
		return 0
	}
	return int64(img.Bounds().Dx())
}

func mustNew(t *testing.T, cfg Config) *Cache {
	t.Helper()
	c, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_Defaults(t *testing.T) {
	c := mustNew(t, Config{})

	got := c.Limits()
	want := Limits{MaxEntries: DefaultMaxEntries, MaxCost: DefaultMaxCost}
	if got != want {
		t.Errorf("Limits() = %+v, want %+v", got, want)
	}
	if info := c.Info(); info != (Info{}) {
		t.Errorf("Info() = %+v, want zero", info)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative entries", Config{MaxEntries: -1}},
		{"negative cost", Config{MaxCost: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, nil)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestCache_GetMissing(t *testing.T) {
	c := mustNew(t, Config{})

	for _, key := range []string{"", "https://example.com", "never-set"} {
		if img, ok := c.Get(key); ok || img != nil {
			t.Errorf("Get(%q) = %v, %v; want nil, false", key, img, ok)
		}
	}
}

func TestCache_SetGet(t *testing.T) {
	c := mustNew(t, Config{})
	img := newImage(10, 10)

	c.Set("https://example.com", img)

	got, ok := c.Get("https://example.com")
	if !ok {
		t.Fatal("Get() should return true after Set")
	}
	if got != img {
		t.Error("Get() returned a different image")
	}
	if info := c.Info(); info.Count != 1 || info.TotalCost != 400 {
		t.Errorf("Info() = %+v, want {1 400}", info)
	}
}

func TestCache_EmptyKey(t *testing.T) {
	c := mustNew(t, Config{})
	img := newImage(1, 1)

	c.Set("", img)
	if got, ok := c.Get(""); !ok || got != img {
		t.Errorf("Get(\"\") = %v, %v; want stored image", got, ok)
	}
}

func TestCache_KeysAreExact(t *testing.T) {
	c := mustNew(t, Config{})
	c.Set("https://example.com", newImage(1, 1))

	for _, key := range []string{"https://example.com/", "HTTPS://EXAMPLE.COM", " https://example.com"} {
		if _, ok := c.Get(key); ok {
			t.Errorf("Get(%q) should miss", key)
		}
	}
}

func TestCache_ClearIdempotent(t *testing.T) {
	c := mustNew(t, Config{})
	c.Set("a", newImage(4, 4))
	c.Set("b", newImage(4, 4))

	c.Clear()
	c.Clear()

	if info := c.Info(); info != (Info{}) {
		t.Errorf("Info() after Clear = %+v, want zero", info)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) should miss after Clear")
	}
	if got := c.Stats().Evictions; got != 0 {
		t.Errorf("Stats().Evictions = %d, want 0 (clear is not eviction)", got)
	}
}

func TestCache_LRUOrdering(t *testing.T) {
	c := mustNew(t, Config{MaxEntries: 2})

	c.Set("a", newImage(1, 1))
	c.Set("b", newImage(1, 1))
	c.Get("a") // Refresh a.
	c.Set("c", newImage(1, 1))

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should be resident")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be resident")
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Stats().Evictions = %d, want 1", got)
	}
}

func TestCache_Replacement(t *testing.T) {
	c := mustNew(t, Config{})
	x := newImage(10, 10)
	y := newImage(5, 5)

	c.Set("k", x)
	c.Set("k", y)

	got, ok := c.Get("k")
	if !ok || got != y {
		t.Fatal("Get(k) should return the replacement image")
	}
	if info := c.Info(); info.Count != 1 || info.TotalCost != RGBACost(y) {
		t.Errorf("Info() = %+v, want {1 %d}", info, RGBACost(y))
	}
}

func TestCache_ReplacementRefreshesRecency(t *testing.T) {
	c := mustNew(t, Config{MaxEntries: 2})

	c.Set("a", newImage(1, 1))
	c.Set("b", newImage(1, 1))
	c.Set("a", newImage(2, 2))
	c.Set("c", newImage(1, 1))

	if c.Contains("b") {
		t.Error("b should have been evicted")
	}
	if !c.Contains("a") || !c.Contains("c") {
		t.Errorf("Keys() = %v, want [a c]", c.Keys())
	}
}

func TestCache_CostEviction(t *testing.T) {
	c := mustNew(t, Config{MaxCost: 1000, Cost: fixedCost})

	c.Set("a", newImage(600, 1))
	c.Set("b", newImage(600, 1))

	if info := c.Info(); info.Count != 1 || info.TotalCost != 600 {
		t.Errorf("Info() = %+v, want {1 600}", info)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("a should have been evicted")
	}
	img, ok := c.Get("b")
	if !ok || img.Bounds().Dx() != 600 {
		t.Error("b should be resident")
	}
}

func TestCache_CostEvictionMultiple(t *testing.T) {
	c := mustNew(t, Config{MaxCost: 1000, Cost: fixedCost})

	c.Set("a", newImage(300, 1))
	c.Set("b", newImage(300, 1))
	c.Set("c", newImage(300, 1))
	c.Set("d", newImage(800, 1))

	if got := c.Keys(); len(got) != 1 || got[0] != "d" {
		t.Errorf("Keys() = %v, want [d]", got)
	}
	if got := c.Stats().Evictions; got != 3 {
		t.Errorf("Stats().Evictions = %d, want 3", got)
	}
}

func TestCache_OversizedArtifact(t *testing.T) {
	c := mustNew(t, Config{MaxCost: 1000, Cost: fixedCost})

	c.Set("small", newImage(100, 1))
	c.Set("huge", newImage(1001, 1))

	if info := c.Info(); info != (Info{}) {
		t.Errorf("Info() = %+v, want zero", info)
	}
	if _, ok := c.Get("huge"); ok {
		t.Error("oversized artifact should not stay resident")
	}
}

func TestCache_ZeroCostArtifacts(t *testing.T) {
	c := mustNew(t, Config{MaxEntries: 3})

	c.Set("nil", nil)
	c.Set("empty", image.NewRGBA(image.Rectangle{}))

	if info := c.Info(); info.Count != 2 || info.TotalCost != 0 {
		t.Errorf("Info() = %+v, want {2 0}", info)
	}
	if img, ok := c.Get("nil"); !ok || img != nil {
		t.Errorf("Get(nil) = %v, %v; want nil, true", img, ok)
	}
}

func TestCache_NegativeCostClamped(t *testing.T) {
	c, err := New(Config{Cost: func(image.Image) int64 { return -50 }}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.Set("a", newImage(1, 1))
	if got := c.Info().TotalCost; got != 0 {
		t.Errorf("TotalCost = %d, want 0", got)
	}
}

func TestCache_Remove(t *testing.T) {
	c := mustNew(t, Config{})
	c.Set("a", newImage(2, 2))
	c.Set("b", newImage(3, 3))

	if !c.Remove("a") {
		t.Error("Remove(a) = false, want true")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true, want false")
	}
	if info := c.Info(); info.Count != 1 || info.TotalCost != 36 {
		t.Errorf("Info() = %+v, want {1 36}", info)
	}
	if got := c.Stats().Evictions; got != 0 {
		t.Errorf("Stats().Evictions = %d, want 0", got)
	}
}

func TestCache_ContainsDoesNotRefresh(t *testing.T) {
	c := mustNew(t, Config{MaxEntries: 2})
	c.Set("a", newImage(1, 1))
	c.Set("b", newImage(1, 1))

	c.Contains("a")
	c.Set("c", newImage(1, 1))

	if c.Contains("a") {
		t.Error("Contains should not refresh recency; a should be evicted")
	}
}

func TestCache_Stats(t *testing.T) {
	c := mustNew(t, Config{})
	c.Set("a", newImage(1, 1))

	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats() = %+v, want 2 hits 1 miss", s)
	}
}

func TestStats_HitRate(t *testing.T) {
	tests := []struct {
		name     string
		hits     int64
		misses   int64
		expected float64
	}{
		{"no requests", 0, 0, 0},
		{"all hits", 10, 0, 100},
		{"all misses", 0, 10, 0},
		{"75% hit rate", 3, 1, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Stats{Hits: tt.hits, Misses: tt.misses}
			if got := s.HitRate(); got != tt.expected {
				t.Errorf("HitRate() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCache_CapacityInvariant(t *testing.T) {
	c := mustNew(t, Config{MaxEntries: 7, MaxCost: 5000})

	for i := 0; i < 200; i++ {
		size := 1 + (i*37)%40
		c.Set(fmt.Sprintf("k%d", i%23), newImage(size, size))

		info := c.Info()
		if info.Count > 7 {
			t.Fatalf("step %d: Count = %d exceeds 7", i, info.Count)
		}
		if info.TotalCost > 5000 {
			t.Fatalf("step %d: TotalCost = %d exceeds 5000", i, info.TotalCost)
		}
		if want := residentCost(c); info.TotalCost != want {
			t.Fatalf("step %d: TotalCost = %d, resident sum = %d", i, info.TotalCost, want)
		}
	}
}

func TestCache_ConcurrentSet(t *testing.T) {
	tests := []struct {
		name       string
		n          int
		maxEntries int
	}{
		{"below capacity", 50, 100},
		{"above capacity", 500, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustNew(t, Config{MaxEntries: tt.maxEntries})

			var wg sync.WaitGroup
			for i := 0; i < tt.n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					key := fmt.Sprintf("https://example.com/%d", i)
					c.Set(key, newImage(8, 8))
					c.Get(key)
				}(i)
			}
			wg.Wait()

			want := min(tt.n, tt.maxEntries)
			info := c.Info()
			if info.Count != want {
				t.Errorf("Count = %d, want %d", info.Count, want)
			}
			if info.TotalCost != int64(want)*RGBACost(newImage(8, 8)) {
				t.Errorf("TotalCost = %d, want %d", info.TotalCost, int64(want)*256)
			}
			if got := residentCost(c); got != info.TotalCost {
				t.Errorf("resident sum = %d, TotalCost = %d", got, info.TotalCost)
			}
		})
	}
}

func TestCache_ConcurrentSameKey(t *testing.T) {
	c := mustNew(t, Config{})

	var wg sync.WaitGroup
	for i := 1; i <= 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set("shared", newImage(i, 1))
		}(i)
	}
	wg.Wait()

	img, ok := c.Get("shared")
	if !ok {
		t.Fatal("shared key should be resident")
	}
	if info := c.Info(); info.Count != 1 || info.TotalCost != RGBACost(img) {
		t.Errorf("Info() = %+v, want {1 %d}", info, RGBACost(img))
	}
}

// residentCost recomputes the cost ledger from the resident entries.
func residentCost(c *Cache) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum int64
	for _, key := range c.lru.Keys() {
		e, _ := c.lru.Peek(key)
		sum += e.cost
	}
	return sum
}

// recordingCollector keeps the last gauge values and counter totals.
type recordingCollector struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]int64
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{counters: map[string]int64{}, gauges: map[string]int64{}}
}

func (r *recordingCollector) IncCounter(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

func (r *recordingCollector) SetGauge(name string, value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

func (r *recordingCollector) ObserveHistogram(string, float64) {}

func TestCache_ReportsMetrics(t *testing.T) {
	rec := newRecordingCollector()
	c, err := New(Config{MaxEntries: 1}, rec)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	c.Set("a", newImage(2, 2))
	c.Set("b", newImage(3, 3))
	c.Get("b")
	c.Get("a")

	if got := rec.counters[stats.MetricCacheHits]; got != 1 {
		t.Errorf("hits counter = %d, want 1", got)
	}
	if got := rec.counters[stats.MetricCacheMisses]; got != 1 {
		t.Errorf("misses counter = %d, want 1", got)
	}
	if got := rec.counters[stats.MetricCacheEvictions]; got != 1 {
		t.Errorf("evictions counter = %d, want 1", got)
	}
	if got := rec.gauges[stats.MetricCacheEntries]; got != 1 {
		t.Errorf("entries gauge = %d, want 1", got)
	}
	if got := rec.gauges[stats.MetricCacheCost]; got != 36 {
		t.Errorf("cost gauge = %d, want 36", got)
	}

	c.Clear()
	if got := rec.gauges[stats.MetricCacheEntries]; got != 0 {
		t.Errorf("entries gauge after Clear = %d, want 0", got)
	}
}

// slowGaugeCollector stalls the first publication of entries=1 so a second
// writer can run while it is in flight.
type slowGaugeCollector struct {
	recordingCollector
	once    sync.Once
	entered chan struct{}
}

func (s *slowGaugeCollector) SetGauge(name string, value int64) {
	if name == stats.MetricCacheEntries && value == 1 {
		s.once.Do(func() {
			close(s.entered)
			time.Sleep(50 * time.Millisecond)
		})
	}
	s.recordingCollector.SetGauge(name, value)
}

func TestCache_GaugesFollowConcurrentSets(t *testing.T) {
	rec := &slowGaugeCollector{
		recordingCollector: recordingCollector{counters: map[string]int64{}, gauges: map[string]int64{}},
		entered:            make(chan struct{}),
	}
	c, err := New(Config{}, rec)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Set("a", newImage(1, 1))
	}()

	<-rec.entered
	c.Set("b", newImage(1, 1))
	wg.Wait()

	info := c.Info()
	rec.mu.Lock()
	entries, cost := rec.gauges[stats.MetricCacheEntries], rec.gauges[stats.MetricCacheCost]
	rec.mu.Unlock()

	if entries != int64(info.Count) {
		t.Errorf("entries gauge = %d, want %d", entries, info.Count)
	}
	if cost != info.TotalCost {
		t.Errorf("cost gauge = %d, want %d", cost, info.TotalCost)
	}
}

func TestCache_TouchSkipsStats(t *testing.T) {
	c := mustNew(t, Config{MaxEntries: 2})
	c.Set("a", newImage(1, 1))
	c.Set("b", newImage(1, 1))

	if _, ok := c.Touch("a"); !ok {
		t.Fatal("Touch(a) ok = false, want true")
	}
	if _, ok := c.Touch("missing"); ok {
		t.Error("Touch(missing) ok = true, want false")
	}

	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("Stats() = %+v, want no hits or misses", s)
	}

	// a was refreshed, so b is the eviction victim.
	c.Set("c", newImage(1, 1))
	if c.Contains("b") || !c.Contains("a") {
		t.Errorf("Keys() = %v, want [a c]", c.Keys())
	}
}
