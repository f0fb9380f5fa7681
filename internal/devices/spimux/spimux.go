// Copyright 2017 by Thorsten von Eicken, see LICENSE file

// Package spimux lets two SPI devices share a single chip-select line, using an
// extra GPIO pin to steer a chip-select demux. cmd/trackerd wires the radio
// transceiver onto the first of the two connections this package returns when a
// board's radio.spi_mux config flag is set; the second connection is presently
// unclaimed on every known board (this tracker's log ring and configuration page
// live on a plain file, not a second SPI chip) and is closed unused — kept here
// rather than trimmed to a single-device package since a future board with an
// SPI-attached peripheral sharing the bus can claim it without changing this
// package's API.
package spimux

import (
	"errors"
	"sync"

	"periph.io/x/periph/conn"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
)

// Conn represents a connection to a device on an SPI bus with a multiplexed chip
// select.
//
// A sample circuit is to use a 74LVC1G19 demux with the SPI CS connected to E, the
// gpio select pin connected to A, and the CS inputs of the two devices attached to
// Y0 and Y1 respectively. A pull-down resistor on the A input of the demux is
// recommended to ensure both CS remain inactive when the SPI CS is not driven.
//
// A limitation of this implementation is that the speed setting and the
// configuration (SPI mode and number of bits) are shared between the two devices,
// i.e., it is not possible to use different settings for the radio and the flash.
type Conn struct {
	mu     *sync.Mutex   // prevent concurrent access to shared SPI bus
	shared *spi.Conn     // lazily-connected, shared underlying SPI connection
	port   spi.PortCloser
	selPin gpio.PinIO // pin to select between two devices
	sel    gpio.Level // select value for this device
}

// New returns two connections sharing the given SPI port, the first one using Low
// for the select pin (conventionally: the radio), and the second using High
// (conventionally: the auxiliary flash).
func New(port spi.PortCloser, selPin gpio.PinIO) (*Conn, *Conn) {
	mu := sync.Mutex{}
	var shared spi.Conn
	return &Conn{&mu, &shared, port, selPin, gpio.Low},
		&Conn{&mu, &shared, port, selPin, gpio.High}
}

// Connect lazily connects the shared underlying port on first use and returns
// itself, since Conn is both a spi.Conn and a spi.PortCloser.
func (c *Conn) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if *c.shared == nil {
		conn, err := c.port.Connect(f, mode, bits)
		if err != nil {
			return nil, err
		}
		*c.shared = conn
	}
	return c, nil
}

// Tx sets the select pin to the correct value and calls the underlying Tx.
func (c *Conn) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selPin.Out(c.sel)
	return (*c.shared).Tx(w, r)
}

// Close is a no-op; the shared port is closed once by whoever owns it.
func (c *Conn) Close() error { return nil }

// Duplex implements the spi.Conn interface.
func (c *Conn) Duplex() conn.Duplex { return conn.Full }

// TxPackets is not implemented; nothing in this tracker needs it.
func (c *Conn) TxPackets(p []spi.Packet) error {
	return errors.New("spimux: TxPackets is not implemented")
}

// LimitSpeed is not implemented; nothing in this tracker needs it.
func (c *Conn) LimitSpeed(f physic.Frequency) error {
	return errors.New("spimux: LimitSpeed is not implemented")
}

var _ spi.Conn = &Conn{}
var _ spi.PortCloser = &Conn{}
