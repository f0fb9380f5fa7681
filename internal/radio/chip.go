package radio

import (
	"fmt"
	"sync"
	"time"

	"aprsballoon/internal/devices"
	"aprsballoon/internal/thread"
)

// Si446x-style register addresses. The tracker's glossary treats the exact
// transceiver chip as an implementation detail ("not redefined here"); this
// register set is modeled on tve-devices' sx1231 driver (REG_FRFMSB et al)
// and generalized to carry both of this tracker's line codes instead of
// sx1231's single fixed FSK rate table.
const (
	regOpMode    = 0x01
	regFrfMSB    = 0x06
	regFrfMid    = 0x07
	regFrfLSB    = 0x08
	regPaLevel   = 0x09
	regBitrate   = 0x0A
	regRSSI      = 0x11
	regDioMap    = 0x19
	regFdevMSB   = 0x1A
	regFdevLSB   = 0x1B
	regFifo      = 0x00
	regIrqFlags  = 0x13
	irqPacketSnt = 0x04
	irqPayloadRd = 0x08
)

// mode values for regOpMode, mirroring sx1231's MODE_SLEEP/STANDBY/FS/TX/RX.
const (
	modeSleep = iota
	modeStandby
	modeFS
	modeTX
	modeRX
)

// modParams describes the register programming for one Modulation, the
// generalization of sx1231.Rate to cover both AFSK1200 (Bell 202 tones over
// narrowband FM) and FSK9600 (direct 2-FSK).
type modParams struct {
	bitrate uint16 // bps
	fdevHz  uint32 // TX frequency deviation in Hz
}

var rateTable = map[Modulation]modParams{
	ModAFSK1200: {bitrate: 1200, fdevHz: 3000},
	ModFSK9600:  {bitrate: 9600, fdevHz: 4500},
}

// Chip drives a real Si446x/RFM69-family transceiver over SPI, with an
// interrupt pin for RX/TX-complete signaling, following sx1231.Radio's
// interrupt-driven worker idiom (go r.worker(), a persistent r.err, a
// rxChan/stopChan pair).
type Chip struct {
	spi     devices.SPI
	intr    devices.GPIO
	log     func(string, ...interface{})

	mu      sync.Mutex
	mode    byte
	mod     Modulation
	freq    uint32
	power   byte

	rxChan  chan RxFrame
	stopCh  chan struct{}
	wg      sync.WaitGroup
	err     error
}

// NewChip brings up a transceiver on spi/intr and starts its receive worker,
// following sx1231.New's sync-pattern-then-config-then-interrupt-test
// sequence, simplified: this tracker's glossary does not redefine the chip's
// internal bring-up handshake, so register sync/detection is represented but
// not bit-exact to any particular chip family.
func NewChip(spi devices.SPI, intr devices.GPIO, log func(string, ...interface{})) (*Chip, error) {
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	c := &Chip{spi: spi, intr: intr, log: log, mode: modeSleep}
	if err := spi.Speed(4 * 1000 * 1000); err != nil {
		return nil, fmt.Errorf("radio: cannot set spi speed: %w", err)
	}
	if err := spi.Configure(devices.SPIMode0, 8); err != nil {
		return nil, fmt.Errorf("radio: cannot set spi mode: %w", err)
	}
	if err := intr.In(devices.GpioRisingEdge); err != nil {
		return nil, fmt.Errorf("radio: cannot arm interrupt pin: %w", err)
	}
	c.setMode(modeStandby)
	c.rxChan = make(chan RxFrame, 8)
	c.stopCh = make(chan struct{})
	c.wg.Add(1)
	go c.worker()
	c.setMode(modeRX)
	return c, nil
}

func (c *Chip) writeReg(reg byte, data ...byte) {
	w := append([]byte{reg | 0x80}, data...)
	r := make([]byte, len(w))
	if err := c.spi.Tx(w, r); err != nil {
		c.recordErr(fmt.Errorf("radio: spi write reg %#x: %w", reg, err))
	}
}

func (c *Chip) readReg(reg byte) byte {
	w := []byte{reg & 0x7f, 0}
	r := make([]byte, 2)
	if err := c.spi.Tx(w, r); err != nil {
		c.recordErr(fmt.Errorf("radio: spi read reg %#x: %w", reg, err))
		return 0
	}
	return r[1]
}

func (c *Chip) recordErr(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *Chip) setMode(mode byte) {
	c.writeReg(regOpMode, mode<<2)
	c.mode = mode
}

// SetFrequency implements Transceiver. Frequency steps follow sx1231's
// SetFrequency comment: units of (32MHz >> 19), multiples of 64 to keep the
// math integer-only.
func (c *Chip) SetFrequency(hz uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.mode
	c.setMode(modeStandby)
	frf := (uint64(hz) << 2) / (32000000 >> 11)
	c.writeReg(regFrfMSB, byte(frf>>10), byte(frf>>2), byte(frf<<6))
	c.setMode(prev)
	c.freq = hz
	return c.err
}

// SetPower implements Transceiver, clamping to the chip's 0..0x7F scale.
func (c *Chip) SetPower(dbm byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if dbm > 0x7F {
		dbm = 0x7F
	}
	prev := c.mode
	c.setMode(modeStandby)
	c.writeReg(regPaLevel, 0x80|dbm)
	c.setMode(prev)
	c.power = dbm
	return c.err
}

// SetModulation implements Transceiver, programming bit rate and frequency
// deviation for the requested line code per rateTable.
func (c *Chip) SetModulation(m Modulation) error {
	p, ok := rateTable[m]
	if !ok {
		return fmt.Errorf("radio: no rate parameters for modulation %s", m)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.mode
	c.setMode(modeStandby)
	rateVal := uint32(32000000+uint32(p.bitrate)/2) / uint32(p.bitrate)
	c.writeReg(regBitrate, byte(rateVal>>8), byte(rateVal&0xff))
	fStep := 32000000.0 / 524288.0
	fdevVal := uint32((float64(p.fdevHz) + fStep/2) / fStep)
	c.writeReg(regFdevMSB, byte(fdevVal>>8), byte(fdevVal&0xff))
	c.setMode(prev)
	c.mod = m
	return c.err
}

// RSSI implements Transceiver, reading the chip's RSSI register and
// converting it to a signed dBm value (0.5dB/count, sx1231 convention).
func (c *Chip) RSSI() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw := c.readReg(regRSSI)
	return -int(raw) / 2, c.err
}

// Send implements Transceiver: keys the transmitter, clocks framed out
// through the FIFO, and blocks until the chip reports PacketSent.
func (c *Chip) Send(framed []byte) error {
	c.mu.Lock()
	prev := c.mode
	c.setMode(modeFS)
	for _, b := range framed {
		c.writeReg(regFifo, b)
	}
	c.setMode(modeTX)
	c.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.readReg(regIrqFlags)&irqPacketSnt != 0 {
			c.mu.Lock()
			c.setMode(prev)
			err := c.err
			c.mu.Unlock()
			return err
		}
		time.Sleep(time.Millisecond)
	}
	c.recordErr(fmt.Errorf("radio: timed out waiting for PacketSent"))
	return c.err
}

// Recv implements Transceiver.
func (c *Chip) Recv() <-chan RxFrame { return c.rxChan }

// Err implements Transceiver.
func (c *Chip) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Reset implements Transceiver, re-initializing the chip after a persistent
// error, mirroring sx1231's contract that a failed Radio must be discarded
// and recreated.
func (c *Chip) Reset() error {
	c.mu.Lock()
	c.err = nil
	c.mu.Unlock()
	c.setMode(modeStandby)
	c.setMode(modeRX)
	return c.Err()
}

// Close implements Transceiver.
func (c *Chip) Close() error {
	close(c.stopCh)
	c.wg.Wait()
	return c.spi.Close()
}

// worker waits for the radio's interrupt pin and drains a received frame
// from the FIFO on each edge, following sx1231.Radio's go r.worker() shape.
func (c *Chip) worker() {
	defer c.wg.Done()
	// Per spec §5, the Radio Manager's worker runs above application
	// threads and below device-driver ISR tasks.
	if err := thread.Realtime(thread.PriorityRadioWorker); err != nil {
		c.log("radio: thread.Realtime failed, running at default priority: %v", err)
	}
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		if !c.intr.WaitForEdge(200 * time.Millisecond) {
			continue
		}
		c.mu.Lock()
		if c.readReg(regIrqFlags)&irqPayloadRd == 0 {
			c.mu.Unlock()
			continue
		}
		length := c.readReg(regFifo)
		payload := make([]byte, length)
		for i := range payload {
			payload[i] = c.readReg(regFifo)
		}
		rssi := c.readReg(regRSSI)
		c.mu.Unlock()
		frame := RxFrame{Body: payload, RSSI: -int(rssi) / 2, At: time.Now()}
		select {
		case c.rxChan <- frame:
		default:
			c.log("radio: rx channel full, dropping frame")
		}
	}
}
