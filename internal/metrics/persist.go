package metrics

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

// Store persists counter values between runs.
type Store interface {
	SaveMetric(metricName, labelKey, labelValue string, value float64) error
	GetMetric(metricName string) (float64, error)
	GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error)
}

const tickerLabel = "ticker"

var persistMutex sync.Mutex

// LoadFromStore adds previously saved counter values to the live counters.
// It should run once, before polling starts.
func LoadFromStore(s Store) error {
	persistMutex.Lock()
	defer persistMutex.Unlock()

	cycles, err := s.GetMetric("cycles_completed")
	if err != nil {
		return errors.Wrap(err, "load cycles_completed")
	}
	CyclesCompleted.Add(cycles)

	for name, vec := range tickerCounters() {
		labeled, err := s.GetMetricsWithLabels(name)
		if err != nil {
			return errors.Wrapf(err, "load %s", name)
		}
		for ticker, value := range labeled[tickerLabel] {
			vec.WithLabelValues(ticker).Add(value)
		}
	}

	log.Debug("Metrics loaded from database.")
	return nil
}

// SaveToStore writes the current counter values.
func SaveToStore(s Store) error {
	persistMutex.Lock()
	defer persistMutex.Unlock()

	if err := s.SaveMetric("cycles_completed", "", "", GetMetricValue(CyclesCompleted)); err != nil {
		return err
	}

	for name, vec := range tickerCounters() {
		for ticker, value := range collectByLabel(vec, tickerLabel) {
			if err := s.SaveMetric(name, tickerLabel, ticker, value); err != nil {
				return err
			}
		}
	}

	log.Debug("Metrics saved to database.")
	return nil
}

func tickerCounters() map[string]*prometheus.CounterVec {
	return map[string]*prometheus.CounterVec{
		"prices_polled":    PricesPolled,
		"alerts_triggered": AlertsTriggered,
	}
}

func collectByLabel(vec *prometheus.CounterVec, label string) map[string]float64 {
	values := make(map[string]float64)

	metricChan := make(chan prometheus.Metric)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("Failed to read metric: %v", err)
			continue
		}
		for _, l := range metricProto.Label {
			if l.GetName() == label {
				values[l.GetValue()] = metricProto.Counter.GetValue()
			}
		}
	}
	return values
}

// GetMetricValue reads the current value of an unlabeled counter or gauge.
func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
