package threads

import (
	"context"

	"aprsballoon/internal/ax25"
	"aprsballoon/internal/collector"
	"aprsballoon/internal/config"
	"aprsballoon/internal/geofence"
	"aprsballoon/internal/packetpool"
	"aprsballoon/internal/radio"
	"aprsballoon/internal/ssdv"
)

// Image is the SSDV image thread (spec §4.7): captures a JPEG, chunks it,
// and transmits each packet as one AX.25 UI frame, retrying per packet on
// radio error.
type Image struct {
	Collector *collector.Collector
	Manager   *radio.Manager
	Pool      *packetpool.Pool
	Camera    ssdv.Camera
	OurCall   ax25.Callsign
	Cfg       config.ImageConfig
	Freq      geofence.Frequency
	Log       LogPrintf
	Heartbeat Heartbeat

	imageID uint8
}

// Run drives the image loop until ctx is cancelled. In Continuous mode the
// loop runs back-to-back (cycle <= 0 to runLoop); otherwise it waits Cfg.Cycle
// between captures.
func (im *Image) Run(ctx context.Context) {
	cycle := im.Cfg.Cycle
	if im.Cfg.Continuous {
		cycle = 0
	}
	runLoop(ctx, "image", cycle, im.Heartbeat, im.Log, im.cycle)
}

func (im *Image) cycle(ctx context.Context) error {
	if !im.Cfg.Enabled || im.Camera == nil {
		return nil
	}
	jpeg, err := im.Camera.Capture(im.Cfg.Width, im.Cfg.Height, im.Cfg.Quality)
	if err != nil {
		return err
	}
	frames, err := ssdv.Chunk(jpeg, im.OurCall.String(), im.imageID, im.Cfg.Width, im.Cfg.Height, im.Cfg.Quality)
	if err != nil {
		return err
	}
	im.imageID++

	path, err := buildPath(im.OurCall, nil)
	if err != nil {
		return err
	}

	for _, f := range frames {
		info := ssdv.Encode(f)
		body, err := buildFrameBody(path, string(info))
		if err != nil {
			return err
		}
		if err := im.sendWithRetry(ctx, body); err != nil {
			im.logf("image: packet %d dropped after retries: %v", f.PacketID, err)
		}
	}
	return nil
}

func (im *Image) logf(format string, v ...interface{}) {
	if im.Log != nil {
		im.Log(format, v...)
	}
}

func (im *Image) sendWithRetry(ctx context.Context, body []byte) error {
	retries := im.Cfg.Retries
	if retries <= 0 {
		retries = 1
	}
	var err error
	for attempt := 0; attempt < retries; attempt++ {
		var pk *packetpool.Packet
		var pbody []byte
		pk, pbody, err = acquirePacket(im.Pool, body)
		if err != nil {
			return err
		}
		task := radio.RadioTask{
			Body:       pbody,
			Packet:     pk,
			Freq:       im.Freq,
			Power:      0x20,
			Modulation: radio.ModAFSK1200,
			Priority:   radio.PriorityImage,
		}
		if err = im.Manager.Submit(ctx, task); err == nil {
			return nil
		}
	}
	return err
}
