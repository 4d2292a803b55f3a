// Package max1704x drives the MAX17040/MAX17041 fuel gauge found on
// X120x series UPS HATs. Only the registers the monitor needs are
// implemented: cell voltage, state of charge, chip version and the
// quick-start command.
package max1704x

import (
	"encoding/binary"
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

// DefaultAddress is the fixed 7-bit bus address of the MAX1704x.
const DefaultAddress = 0x36

// Register map. All registers are 16-bit, MSB first on the wire.
const (
	regVCell      = 0x02 // cell voltage, 1.25mV units in the upper 12 bits
	regSOC        = 0x04 // state of charge, 1/256% units
	regMode       = 0x06 // write 0x4000 to quick-start
	regVersion    = 0x08 // IC production version
	quickStartVal = 0x4000
)

// Dev is a handle to a MAX1704x on an I2C bus.
type Dev struct {
	dev *i2c.Dev
}

// New returns a handle to the fuel gauge and verifies it responds by
// reading the version register.
func New(bus i2c.Bus) (*Dev, error) {
	d := &Dev{dev: &i2c.Dev{Bus: bus, Addr: DefaultAddress}}
	if _, err := d.Version(); err != nil {
		return nil, fmt.Errorf("max1704x not responding at 0x%02X: %w", DefaultAddress, err)
	}
	return d, nil
}

// Voltage returns the cell voltage in volts.
func (d *Dev) Voltage() (float64, error) {
	raw, err := d.readWord(regVCell)
	if err != nil {
		return 0, fmt.Errorf("read vcell: %w", err)
	}
	return float64(raw) * 1.25 / 1000 / 16, nil
}

// Capacity returns the state of charge in percent. The high byte is
// the integer part, the low byte 1/256ths.
func (d *Dev) Capacity() (float64, error) {
	raw, err := d.readWord(regSOC)
	if err != nil {
		return 0, fmt.Errorf("read soc: %w", err)
	}
	return float64(raw) / 256, nil
}

// Version returns the IC production version word.
func (d *Dev) Version() (uint16, error) {
	return d.readWord(regVersion)
}

// QuickStart restarts the gauge's SOC estimation from the current cell
// voltage. Useful after a battery swap or a power-up glitch has left
// the estimate off.
func (d *Dev) QuickStart() error {
	if err := d.writeWord(regMode, quickStartVal); err != nil {
		return fmt.Errorf("quick-start: %w", err)
	}
	return nil
}

// readWord reads a 16-bit register, returned in host order.
func (d *Dev) readWord(register byte) (uint16, error) {
	data := make([]byte, 2)
	if err := d.dev.Tx([]byte{register}, data); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(data), nil
}

// writeWord writes a 16-bit register, MSB first.
func (d *Dev) writeWord(register byte, value uint16) error {
	_, err := d.dev.Write([]byte{register, byte(value >> 8), byte(value & 0xFF)})
	return err
}
