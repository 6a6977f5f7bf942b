package energy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	mu      sync.Mutex
	calls   int
	reading Reading
	err     error
}

func (f *fakeChecker) CheckForOverload(context.Context) (Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reading, f.err
}

func (f *fakeChecker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestWatcher_CheckDeliversToSinks(t *testing.T) {
	checker := &fakeChecker{reading: Reading{UsageKWh: 2, DailyLimitKWh: 3, CheckedAt: time.Now()}}
	w := NewWatcher(checker, time.Minute)

	var got []Reading
	w.AddSink(SinkFunc(func(_ context.Context, r Reading) error {
		got = append(got, r)
		return nil
	}))
	w.AddSink(SinkFunc(func(context.Context, Reading) error {
		return errors.New("sink down")
	}))

	w.Check(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].UsageKWh)

	last, ok := w.LastReading()
	assert.True(t, ok)
	assert.Equal(t, 3.0, last.DailyLimitKWh)
}

func TestWatcher_CheckErrorSkipsSinks(t *testing.T) {
	checker := &fakeChecker{err: errors.New("store offline")}
	w := NewWatcher(checker, time.Minute)

	called := false
	w.AddSink(SinkFunc(func(context.Context, Reading) error {
		called = true
		return nil
	}))

	w.Check(context.Background())

	assert.False(t, called)
	_, ok := w.LastReading()
	assert.False(t, ok)
}

func TestWatcher_AlertFailureStillRecorded(t *testing.T) {
	checker := &fakeChecker{
		reading: Reading{UsageKWh: 9, DailyLimitKWh: 1, Overloaded: true, CheckedAt: time.Now()},
		err:     errors.New("webhook 500"),
	}
	w := NewWatcher(checker, time.Minute)

	var delivered int
	w.AddSink(SinkFunc(func(context.Context, Reading) error {
		delivered++
		return nil
	}))

	w.Check(context.Background())
	assert.Equal(t, 1, delivered)
}

func TestWatcher_RunUntilCancelled(t *testing.T) {
	checker := &fakeChecker{reading: Reading{CheckedAt: time.Now()}}
	w := NewWatcher(checker, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return checker.count() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestWatcher_DisabledInterval(t *testing.T) {
	checker := &fakeChecker{}
	w := NewWatcher(checker, 0)

	w.Run(context.Background())
	assert.Zero(t, checker.count())
}

func TestMetricsCollector(t *testing.T) {
	collector := NewMetricsCollector()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collector)

	ctx := context.Background()
	checked := time.Unix(1_700_000_000, 0)
	require.NoError(t, collector.Observe(ctx, Reading{UsageKWh: 4.5, DailyLimitKWh: 3, ActiveDevices: 3, Overloaded: true, CheckedAt: checked}))
	require.NoError(t, collector.Observe(ctx, Reading{UsageKWh: 1, DailyLimitKWh: 3, ActiveDevices: 1, CheckedAt: checked}))

	families, err := registry.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		m := mf.GetMetric()[0]
		switch {
		case m.GetGauge() != nil:
			values[mf.GetName()] = m.GetGauge().GetValue()
		case m.GetCounter() != nil:
			values[mf.GetName()] = m.GetCounter().GetValue()
		}
	}

	assert.Equal(t, 1.0, values["graylogic_energy_usage_kwh"])
	assert.Equal(t, 3.0, values["graylogic_energy_daily_limit_kwh"])
	assert.Equal(t, 1.0, values["graylogic_energy_active_devices"])
	assert.Equal(t, 0.0, values["graylogic_energy_overloaded"])
	assert.Equal(t, 1.0, values["graylogic_energy_overloads_total"])
	assert.Equal(t, float64(checked.Unix()), values["graylogic_energy_last_check_timestamp_seconds"])
}
