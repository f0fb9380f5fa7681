package ssdv

import "aprsballoon/internal/errs"

// FakeCamera is a deterministic test double for Camera: it returns a fixed
// buffer (or a configured error) regardless of the requested resolution.
type FakeCamera struct {
	JPEG []byte
	Err  error
}

// Capture implements Camera.
func (c *FakeCamera) Capture(width, height int, quality uint8) ([]byte, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if len(c.JPEG) == 0 {
		return nil, errs.ErrPacketTooLong
	}
	return c.JPEG, nil
}

var _ Camera = (*FakeCamera)(nil)
