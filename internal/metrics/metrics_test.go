package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type memoryStore struct {
	plain   map[string]float64
	labeled map[string]map[string]map[string]float64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		plain:   make(map[string]float64),
		labeled: make(map[string]map[string]map[string]float64),
	}
}

func (m *memoryStore) SaveMetric(name, labelKey, labelValue string, value float64) error {
	if labelKey == "" {
		m.plain[name] = value
		return nil
	}
	if m.labeled[name] == nil {
		m.labeled[name] = make(map[string]map[string]float64)
	}
	if m.labeled[name][labelKey] == nil {
		m.labeled[name][labelKey] = make(map[string]float64)
	}
	m.labeled[name][labelKey][labelValue] = value
	return nil
}

func (m *memoryStore) GetMetric(name string) (float64, error) {
	return m.plain[name], nil
}

func (m *memoryStore) GetMetricsWithLabels(name string) (map[string]map[string]float64, error) {
	return m.labeled[name], nil
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	store := newMemoryStore()
	store.SaveMetric("alerts_triggered", "ticker", "PERSIST_A", 3)
	store.SaveMetric("prices_polled", "ticker", "PERSIST_A", 12)

	cyclesBefore := GetMetricValue(CyclesCompleted)
	store.SaveMetric("cycles_completed", "", "", 5)

	if err := LoadFromStore(store); err != nil {
		t.Fatalf("LoadFromStore: %v", err)
	}
	AlertsTriggered.WithLabelValues("PERSIST_A").Inc()

	out := newMemoryStore()
	if err := SaveToStore(out); err != nil {
		t.Fatalf("SaveToStore: %v", err)
	}

	if got := out.labeled["alerts_triggered"]["ticker"]["PERSIST_A"]; got != 4 {
		t.Fatalf("expected 4 alerts, got %v", got)
	}
	if got := out.labeled["prices_polled"]["ticker"]["PERSIST_A"]; got != 12 {
		t.Fatalf("expected 12 polls, got %v", got)
	}
	if got := out.plain["cycles_completed"]; got != cyclesBefore+5 {
		t.Fatalf("expected %v cycles, got %v", cyclesBefore+5, got)
	}
}

func TestHandlerServesHealthAndMetrics(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status %d", resp.StatusCode)
	}

	WatchedTickers.Set(2)
	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "tickerwatch_watcher_watched_tickers 2") {
		t.Fatalf("watched_tickers gauge missing from metrics output")
	}
}
