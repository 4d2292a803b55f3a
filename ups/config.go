package ups

import (
	"fmt"
	"time"
)

// Defaults match the values the X120x HATs ship with.
const (
	DefaultMinCapacityShutdown   = 30.0 // percent
	DefaultMinVoltageShutdown    = 3.20 // volts
	DefaultPollInterval          = 60 * time.Second
	DefaultACLossConfirmations   = 1
	DefaultShutdownConfirmations = 1
)

// Config is the decision surface of the monitor. Confirmation counts
// of 1 mean immediate action, which is the behaviour callers get when
// they do not need debouncing.
type Config struct {
	// MinCapacityShutdown triggers a shutdown when capacity drops
	// below this percentage while on battery.
	MinCapacityShutdown float64
	// MinVoltageShutdown triggers a shutdown when voltage drops below
	// this while on battery. Also the Very Low / Critical band boundary.
	MinVoltageShutdown float64
	// ACLossConfirmations is how many consecutive polls must see the
	// PLD line low before the battery thresholds are even considered.
	ACLossConfirmations int
	// ShutdownConfirmations is how many consecutive critical readings
	// are needed before the shutdown is issued.
	ShutdownConfirmations int
	// PollInterval is the sleep between polls.
	PollInterval time.Duration
	// DryRun logs the shutdown instead of executing it.
	DryRun bool
	// ACSensing reads the PLD line each poll. When false the AC state
	// is unknown and the shutdown path is unreachable, which lets a
	// second instance run alongside one that owns the line.
	ACSensing bool
}

// DefaultConfig returns the stock X120x thresholds with AC sensing on.
func DefaultConfig() Config {
	return Config{
		MinCapacityShutdown:   DefaultMinCapacityShutdown,
		MinVoltageShutdown:    DefaultMinVoltageShutdown,
		ACLossConfirmations:   DefaultACLossConfirmations,
		ShutdownConfirmations: DefaultShutdownConfirmations,
		PollInterval:          DefaultPollInterval,
		ACSensing:             true,
	}
}

// Validate rejects configurations the monitor cannot safely run with.
// A bad configuration is fatal at startup, never at runtime.
func (c Config) Validate() error {
	if c.MinCapacityShutdown < 0 || c.MinCapacityShutdown > 100 {
		return fmt.Errorf("min capacity shutdown must be within 0-100%%, got %.2f", c.MinCapacityShutdown)
	}
	if c.MinVoltageShutdown <= 0 || c.MinVoltageShutdown >= 3.40 {
		return fmt.Errorf("min voltage shutdown must be above 0V and below the 3.40V band boundary, got %.2f", c.MinVoltageShutdown)
	}
	if c.ACLossConfirmations < 1 {
		return fmt.Errorf("ac loss confirmations must be >= 1, got %d", c.ACLossConfirmations)
	}
	if c.ShutdownConfirmations < 1 {
		return fmt.Errorf("shutdown confirmations must be >= 1, got %d", c.ShutdownConfirmations)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return nil
}
