package main

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x120x/ups-monitor/pld"
	"github.com/x120x/ups-monitor/ups"
)

type fakeGauge struct {
	voltage  float64
	capacity float64
	err      error
}

func (g *fakeGauge) Voltage() (float64, error)  { return g.voltage, g.err }
func (g *fakeGauge) Capacity() (float64, error) { return g.capacity, g.err }

type fakeExecutor struct {
	calls   int
	reasons []string
	err     error
}

func (e *fakeExecutor) Shutdown(reason string) error {
	e.calls++
	e.reasons = append(e.reasons, reason)
	return e.err
}

func testMonitor(cfg ups.Config, gauge *fakeGauge, ac pld.Reader) (*monitor, *fakeExecutor) {
	executor := &fakeExecutor{}
	m := newMonitor(cfg, gauge, ac, executor)
	m.cooldown = time.Millisecond
	return m, executor
}

func fastConfig() ups.Config {
	cfg := ups.DefaultConfig()
	cfg.PollInterval = time.Millisecond
	return cfg
}

func TestLowCapacityOnBatteryShutsDown(t *testing.T) {
	gauge := &fakeGauge{voltage: 3.9, capacity: 25}
	m, executor := testMonitor(fastConfig(), gauge, pld.NewFake(false))

	d := m.poll()
	assert.True(t, d.Shutdown)
	require.Equal(t, 1, executor.calls)
	assert.Contains(t, executor.reasons[0], "critical battery level")
}

func TestHealthyOnACDoesNotShutDown(t *testing.T) {
	gauge := &fakeGauge{voltage: 3.9, capacity: 85}
	m, executor := testMonitor(fastConfig(), gauge, pld.NewFake(true))

	for i := 0; i < 5; i++ {
		d := m.poll()
		assert.False(t, d.Shutdown)
	}
	assert.Equal(t, 0, executor.calls)
}

func TestCriticalOnACDoesNotShutDown(t *testing.T) {
	// Plugged in with a flat battery: charging, not dying.
	gauge := &fakeGauge{voltage: 3.0, capacity: 5}
	m, executor := testMonitor(fastConfig(), gauge, pld.NewFake(true))

	m.poll()
	assert.Equal(t, 0, executor.calls)
}

func TestSensorFailureNeverShutsDown(t *testing.T) {
	gauge := &fakeGauge{err: errors.New("i2c: timeout")}
	m, executor := testMonitor(fastConfig(), gauge, pld.NewFake(false))

	for i := 0; i < 5; i++ {
		d := m.poll()
		assert.False(t, d.Shutdown)
		assert.Nil(t, m.lastStatus().Reading)
	}
	assert.Equal(t, 0, executor.calls)
}

func TestNoPLDNeverShutsDown(t *testing.T) {
	gauge := &fakeGauge{voltage: 2.8, capacity: 1}
	m, executor := testMonitor(fastConfig(), gauge, nil)

	for i := 0; i < 5; i++ {
		d := m.poll()
		assert.False(t, d.Shutdown)
		assert.Equal(t, ups.ACUnknown, m.lastStatus().AC)
	}
	assert.Equal(t, 0, executor.calls)
}

func TestExecutorFailureIsNotRetried(t *testing.T) {
	gauge := &fakeGauge{voltage: 3.9, capacity: 25}
	m, executor := testMonitor(fastConfig(), gauge, pld.NewFake(false))
	executor.err = errors.New("sudo: a password is required")

	d := m.poll()
	assert.True(t, d.Shutdown)
	assert.Equal(t, 1, executor.calls)

	// The engine was reset after the trip, so the very next poll
	// starts a fresh confirmation run instead of re-firing.
	d = m.poll()
	assert.True(t, d.Shutdown)
	assert.Equal(t, 2, executor.calls)
}

func TestRunStopsAfterIterations(t *testing.T) {
	gauge := &fakeGauge{voltage: 3.9, capacity: 85}
	m, executor := testMonitor(fastConfig(), gauge, pld.NewFake(true))

	sigs := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() { done <- m.run(sigs, 3) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not exit after the requested iterations")
	}
	assert.Equal(t, 0, executor.calls)
	assert.NotNil(t, m.lastStatus().Reading)
}

func TestRunStopsOnSignal(t *testing.T) {
	gauge := &fakeGauge{voltage: 3.9, capacity: 85}
	cfg := fastConfig()
	cfg.PollInterval = time.Hour // force the exit to come from the signal
	m, _ := testMonitor(cfg, gauge, pld.NewFake(true))

	sigs := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() { done <- m.run(sigs, 0) }()

	time.Sleep(50 * time.Millisecond)
	sigs <- os.Interrupt

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not exit on signal")
	}
}

func TestVoltageReasonWhenCapacityHealthy(t *testing.T) {
	gauge := &fakeGauge{voltage: 3.1, capacity: 50}
	m, executor := testMonitor(fastConfig(), gauge, pld.NewFake(false))

	d := m.poll()
	assert.True(t, d.Shutdown)
	require.Equal(t, 1, executor.calls)
	assert.Contains(t, executor.reasons[0], "critical battery voltage")
}

func TestACRestoreCancelsConfirmation(t *testing.T) {
	cfg := fastConfig()
	cfg.ShutdownConfirmations = 3
	gauge := &fakeGauge{voltage: 3.0, capacity: 5}
	ac := pld.NewFake(false)
	m, executor := testMonitor(cfg, gauge, ac)

	m.poll()
	m.poll()
	require.Equal(t, 2, m.lastStatus().Decision.CriticalStreak)

	ac.Set(true)
	d := m.poll()
	assert.False(t, d.Shutdown)
	assert.Equal(t, 0, m.lastStatus().Decision.CriticalStreak)

	// Back on battery: the full confirmation run is required again.
	ac.Set(false)
	m.poll()
	m.poll()
	d = m.poll()
	assert.True(t, d.Shutdown)
	assert.Equal(t, 1, executor.calls)
}

func TestRenderStatusPlaceholders(t *testing.T) {
	s := renderStatus(nil, ups.BandUnknown, ups.ACUnknown, "N/A")
	assert.Equal(t, "Capacity: N/A, AC Power State: Unknown (PLD disabled) (Raw PLD: N/A), Voltage: N/A", s)

	s = renderStatus(&ups.Reading{Voltage: 3.8, Capacity: 85.25}, ups.BandHigh, ups.ACOnline, "1")
	assert.Equal(t, "Capacity: 85.25% (High), AC Power State: Plugged in (Raw PLD: 1), Voltage: 3.80V", s)
}
