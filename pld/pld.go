// Package pld reads the power-loss-detect line of an X120x UPS HAT
// through the Linux GPIO character device. The line is driven high by
// the HAT while the AC adapter is supplying power.
package pld

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Default wiring on Raspberry Pi 4 class boards. On a Pi 5 the header
// lives on gpiochip4.
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 6
)

// Reader reports whether AC power is present.
type Reader interface {
	// ACPresent returns true while the adapter is supplying power.
	ACPresent() (bool, error)

	// Close releases the GPIO line.
	Close() error
}

// Line reads the PLD pin from real hardware. The line is requested
// exclusively, so only one process may sense AC at a time.
type Line struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// Open requests the PLD line as an input.
func Open(chip string, pin int) (*Line, error) {
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer("ups-monitor"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}
	l, err := c.RequestLine(pin, gpiocdev.AsInput)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request pld pin %d: %w", pin, err)
	}
	return &Line{chip: c, line: l}, nil
}

// ACPresent reads the line. High means the adapter is plugged in.
func (l *Line) ACPresent() (bool, error) {
	v, err := l.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pld: %w", err)
	}
	return v == 1, nil
}

// Close releases the line and the chip handle. Safe to call once on
// every exit path.
func (l *Line) Close() error {
	var firstErr error
	if l.line != nil {
		if err := l.line.Close(); err != nil {
			firstErr = fmt.Errorf("close pld line: %w", err)
		}
		l.line = nil
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close gpio chip: %w", err)
		}
		l.chip = nil
	}
	return firstErr
}
