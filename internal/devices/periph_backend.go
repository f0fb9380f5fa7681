package devices

// The periph backend is the primary backend, built on periph.io/x/periph the way
// tve-devices' spimux and sx1276 packages already do (both import
// periph.io/x/periph/conn/{gpio,spi}). It is extended here with an I2C opener
// because the teacher never needed one.

import (
	"fmt"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// InitHost registers the platform's gpio/spi/i2c drivers. Must be called once
// before OpenPeriphSPI/OpenPeriphI2C/OpenPeriphGPIO.
func InitHost() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("devices: host.Init: %w", err)
	}
	return nil
}

// OpenPeriphSPI opens an SPI port by name (e.g. "/dev/spidev0.0" or "SPI0.0") and
// wraps it to satisfy the SPI interface.
func OpenPeriphSPI(name string, hz int64, mode spi.Mode) (SPI, error) {
	port, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("devices: spireg.Open(%s): %w", name, err)
	}
	return WrapPeriphSPI(port, hz, mode)
}

// WrapPeriphSPI adapts an already-opened periph spi.PortCloser (for instance
// one half of a spimux.New() pair) to satisfy the SPI interface. OpenPeriphSPI
// is WrapPeriphSPI composed with spireg.Open for the common single-device case.
func WrapPeriphSPI(port spi.PortCloser, hz int64, mode spi.Mode) (SPI, error) {
	conn, err := port.Connect(physic.Hertz*physic.Frequency(hz), mode, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("devices: spi Connect: %w", err)
	}
	return &periphSPI{port: port, conn: conn, hz: hz, mode: mode}, nil
}

type periphSPI struct {
	port spi.PortCloser
	conn spi.Conn
	hz   int64
	mode spi.Mode
}

func (s *periphSPI) Tx(w, r []byte) error { return s.conn.Tx(w, r) }

func (s *periphSPI) Speed(hz int64) error {
	conn, err := s.port.Connect(physic.Hertz*physic.Frequency(hz), s.mode, 8)
	if err != nil {
		return err
	}
	s.conn, s.hz = conn, hz
	return nil
}

func (s *periphSPI) Configure(mode int, bits int) error {
	conn, err := s.port.Connect(physic.Hertz*physic.Frequency(s.hz), spi.Mode(mode), bits)
	if err != nil {
		return err
	}
	s.conn, s.mode = conn, spi.Mode(mode)
	return nil
}

func (s *periphSPI) Close() error { return s.port.Close() }

// OpenPeriphI2C opens an I2C bus by name (e.g. "/dev/i2c-1" or "I2C1").
func OpenPeriphI2C(name string) (I2C, error) {
	port, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("devices: i2creg.Open(%s): %w", name, err)
	}
	return &periphI2C{port: port}, nil
}

type periphI2C struct {
	port i2c.BusCloser
}

func (b *periphI2C) Tx(addr uint16, w, r []byte) error {
	return b.port.Tx(addr, w, r)
}

func (b *periphI2C) Close() error { return b.port.Close() }

// OpenPeriphGPIO opens a digital line by name (e.g. "GPIO17").
func OpenPeriphGPIO(name string) (GPIO, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("devices: no such gpio pin %q", name)
	}
	return &periphGPIO{pin: pin}, nil
}

type periphGPIO struct {
	pin gpio.PinIO
}

func (g *periphGPIO) In(edge int) error {
	e := gpio.NoEdge
	if edge == GpioRisingEdge {
		e = gpio.RisingEdge
	}
	return g.pin.In(gpio.PullNoChange, e)
}

func (g *periphGPIO) Read() int {
	if g.pin.Read() == gpio.High {
		return GpioHigh
	}
	return GpioLow
}

// WaitForEdge delegates straight to the periph pin; periph already exposes the
// same "block up to timeout, return whether an edge arrived" contract our GPIO
// interface wants.
func (g *periphGPIO) WaitForEdge(timeout time.Duration) bool {
	return g.pin.WaitForEdge(timeout)
}

func (g *periphGPIO) Out(level int) {
	g.pin.Out(level == GpioHigh)
}

func (g *periphGPIO) Number() int {
	return g.pin.Number()
}
