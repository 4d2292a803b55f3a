package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/x120x/ups-monitor/pld"
	"github.com/x120x/ups-monitor/ups"
)

// fuelGauge is the slice of the MAX1704x driver the loop needs.
type fuelGauge interface {
	Voltage() (float64, error)
	Capacity() (float64, error)
}

// pollStatus is the last completed poll, kept for the D-Bus service.
type pollStatus struct {
	Time     time.Time
	Reading  *ups.Reading
	Reject   ups.RejectReason
	AC       ups.ACStatus
	RawPLD   string
	Band     ups.Band
	Decision ups.Decision
}

// monitor owns the poll loop. Exactly one goroutine runs the loop and
// mutates the engine; the status snapshot is the only state shared
// with the D-Bus service.
type monitor struct {
	cfg      ups.Config
	gauge    fuelGauge
	ac       pld.Reader // nil when AC sensing is disabled
	engine   *ups.Engine
	executor shutdownExecutor
	cooldown time.Duration

	mu   sync.Mutex
	last pollStatus
}

func newMonitor(cfg ups.Config, gauge fuelGauge, ac pld.Reader, executor shutdownExecutor) *monitor {
	return &monitor{
		cfg:      cfg,
		gauge:    gauge,
		ac:       ac,
		engine:   ups.NewEngine(cfg),
		executor: executor,
		cooldown: shutdownCooldown,
	}
}

// run polls until a termination signal arrives or, when iterations is
// positive, until that many polls have completed. Sleeps between polls
// stay interruptible so a signal never waits out the interval.
func (m *monitor) run(sigs <-chan os.Signal, iterations int) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	polls := 0
	for {
		select {
		case s := <-sigs:
			log.Infof("Received %v. Cleaning up...", s)
			return nil
		case <-timer.C:
		}

		d := m.poll()

		if d.Shutdown {
			select {
			case s := <-sigs:
				log.Infof("Received %v. Cleaning up...", s)
				return nil
			case <-time.After(m.cooldown):
			}
		}

		polls++
		if iterations > 0 && polls >= iterations {
			log.Info("Test iterations complete. Exiting.")
			return nil
		}
		timer.Reset(m.cfg.PollInterval)
	}
}

// poll performs one sample-validate-classify-decide cycle. Sensor
// failures degrade the sample to absent and never propagate further
// than this iteration.
func (m *monitor) poll() ups.Decision {
	now := time.Now()

	acStatus := ups.ACUnknown
	rawPLD := "N/A"
	if m.ac != nil {
		present, err := m.ac.ACPresent()
		switch {
		case err != nil:
			log.Errorf("PLD read error: %v", err)
		case present:
			acStatus = ups.ACOnline
			rawPLD = "1"
		default:
			acStatus = ups.ACOffline
			rawPLD = "0"
		}
	}

	voltage, err := m.gauge.Voltage()
	var capacity float64
	if err == nil {
		capacity, err = m.gauge.Capacity()
	}
	if err != nil {
		log.Errorf("I2C read error: %v", err)
	}

	sample, reject := ups.Validate(voltage, capacity, err)
	switch reject {
	case ups.CapacityOutOfRange:
		log.Warnf("Out-of-range capacity reading: %.2f%%. Ignoring this sample.", capacity)
	case ups.VoltageOutOfRange:
		log.Warnf("Out-of-range voltage reading: %.2fV. Ignoring this sample.", voltage)
	}

	band := ups.BandUnknown
	if sample != nil {
		band = ups.Classify(sample.Voltage, m.cfg.MinVoltageShutdown)
	}
	log.Info(renderStatus(sample, band, acStatus, rawPLD))

	d := m.engine.Step(ups.Input{AC: acStatus, Reading: sample})

	if d.ACLostEdge {
		log.Warn("UPS is unplugged or AC power loss detected.")
	}
	if acStatus == ups.ACOffline && d.ACLossStreak > 1 {
		log.Debugf("AC power loss consecutive check: %d/%d.", d.ACLossStreak, m.cfg.ACLossConfirmations)
	}
	if d.ACRestoredEdge {
		log.Info("AC Power restored. Resetting AC loss counter.")
	}
	if d.CriticalStreak > 0 {
		log.Warnf("Critical condition detected (%d/%d).", d.CriticalStreak, m.cfg.ShutdownConfirmations)
	}

	if d.Shutdown {
		reason := renderReason(d, sample, m.cfg)
		log.Warnf("Critical condition met %s Initiating shutdown.", reason)
		if err := m.executor.Shutdown(reason); err != nil {
			// Not retried: once at the edge, retry risk is worse than
			// a missed attempt.
			log.Errorf("Shutdown failed: %v", err)
		}
		m.engine.Reset()
	}

	m.mu.Lock()
	m.last = pollStatus{
		Time:     now,
		Reading:  sample,
		Reject:   reject,
		AC:       acStatus,
		RawPLD:   rawPLD,
		Band:     band,
		Decision: d,
	}
	m.mu.Unlock()

	return d
}

// lastStatus returns a snapshot of the most recent poll.
func (m *monitor) lastStatus() pollStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func renderStatus(sample *ups.Reading, band ups.Band, ac ups.ACStatus, rawPLD string) string {
	capStr := "N/A"
	voltStr := "N/A"
	if sample != nil {
		capStr = fmt.Sprintf("%.2f%% (%s)", sample.Capacity, band)
		voltStr = fmt.Sprintf("%.2fV", sample.Voltage)
	}
	return fmt.Sprintf("Capacity: %s, AC Power State: %s (Raw PLD: %s), Voltage: %s",
		capStr, ac, rawPLD, voltStr)
}

func renderReason(d ups.Decision, sample *ups.Reading, cfg ups.Config) string {
	if sample != nil {
		if d.CapacityLow {
			return fmt.Sprintf("due to critical battery level (%.2f%% < %.1f%%).",
				sample.Capacity, cfg.MinCapacityShutdown)
		}
		if d.VoltageLow {
			return fmt.Sprintf("due to critical battery voltage (%.2fV < %.2fV).",
				sample.Voltage, cfg.MinVoltageShutdown)
		}
	}
	return "due to critical battery condition."
}
