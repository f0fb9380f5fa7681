package devices

// The embd backend is the legacy fallback used on boards periph.io doesn't support
// yet. It is a near-verbatim generalization of tve-devices' shim.go: the SPI/GPIO
// shim is unchanged in shape, and an I2C shim is added alongside it for the BME280/
// PAC1720 sensor façade.

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kidoman/embd"
)

// NewEmbdSPI returns an SPI bus backed by embd, fixed at the 4MHz/mode-0 setting
// the original driver required.
func NewEmbdSPI() SPI {
	return &embdSPI{embd.NewSPIBus(embd.SPIMode0, 0, 4, 8, 0)}
}

type embdSPI struct {
	embd.SPIBus
}

func (s *embdSPI) Tx(w, r []byte) error {
	copy(r, w)
	return s.TransferAndReceiveData(r)
}

func (s *embdSPI) Speed(hz int64) error {
	if hz != 4000000 {
		return errors.New("devices: embd backend only supports 4Mhz")
	}
	return nil
}

func (s *embdSPI) Configure(mode int, bits int) error {
	if mode != SPIMode0 {
		return errors.New("devices: embd backend only supports SPI mode 0")
	}
	if bits != 8 {
		return errors.New("devices: embd backend only supports 8-bit transfers")
	}
	return nil
}

// NewEmbdI2C returns an I2C bus backed by embd on the given bus number.
func NewEmbdI2C(busNum byte) I2C {
	return &embdI2C{embd.NewI2CBus(busNum)}
}

type embdI2C struct {
	embd.I2CBus
}

func (b *embdI2C) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		if err := b.WriteBytes(byte(addr), w); err != nil {
			return err
		}
	}
	if len(r) == 0 {
		return nil
	}
	got, err := b.ReadBytes(byte(addr), len(r))
	if err != nil {
		return err
	}
	copy(r, got)
	return nil
}

func (b *embdI2C) Close() error { return nil }

// NewEmbdGPIO returns a GPIO line backed by embd, named the way the platform's
// pin-naming scheme expects (e.g. "GPIO17" on a Pi, "CSID1" on a C.H.I.P.).
func NewEmbdGPIO(name string) GPIO {
	g, err := embd.NewDigitalPin(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "devices: NewDigitalPin(%s): %s\n", name, err)
		return nil
	}
	return &embdGPIO{p: g, dir: embd.In, edge: make(chan struct{}, 1)}
}

type embdGPIO struct {
	p    embd.DigitalPin
	dir  embd.Direction
	edge chan struct{}
}

func (g *embdGPIO) In(edge int) error {
	if err := g.p.SetDirection(embd.In); err != nil {
		return err
	}
	g.dir = embd.In
	if edge != GpioNoEdge {
		e := []embd.Edge{embd.EdgeNone, embd.EdgeRising, embd.EdgeFalling, embd.EdgeBoth}[edge]
		return g.p.Watch(e, g.edgeCB)
	}
	return nil
}

func (g *embdGPIO) Read() int {
	v, _ := g.p.Read()
	return v
}

func (g *embdGPIO) WaitForEdge(timeout time.Duration) bool {
	to := time.After(timeout)
	select {
	case <-g.edge:
		return true
	case <-to:
		return false
	}
}

func (g *embdGPIO) Out(level int) {
	if g.dir != embd.Out {
		g.p.SetDirection(embd.Out)
		g.dir = embd.Out
	}
	g.p.Write(level)
}

func (g *embdGPIO) Number() int { return g.p.N() }

func (g *embdGPIO) edgeCB(embd.DigitalPin) {
	select {
	case g.edge <- struct{}{}:
	default:
	}
}
