// Package collector implements the Data Collector (C2): the single goroutine
// that owns the sensor façade, publishes the authoritative dataPoint stream,
// and persists every sample to the log ring (spec §4.1). Its request/reply
// shape is a channel-driven actor, the same idiom tve-devices' sx1231.Radio
// uses for its txChan/rxChan pair; its Initialize/Run/stopChan+sync.WaitGroup
// lifecycle is grounded on ArgusSDR's internal/collector.Collector, and the
// "is this fix still good enough to use" check follows houneTeam's
// gps.State.FixSnapshot (lat, lon, ok, cached) freshness pattern.
package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"aprsballoon/internal/config"
	"aprsballoon/internal/datapoint"
	"aprsballoon/internal/devices"
	"aprsballoon/internal/errs"
	"aprsballoon/internal/logring"
	"aprsballoon/internal/sensors"
	"aprsballoon/internal/thread"
)

// LogPrintf matches the teacher's injectable logging signature (SPEC_FULL
// §1 ambient stack).
type LogPrintf func(format string, args ...interface{})

// Sensors bundles the façade instances the Collector reads each refresh.
// Any field may be nil (not fitted); Collector degrades each corresponding
// dataPoint field to its FAIL/NOT_FITTED status instead of erroring.
type Sensors struct {
	GPS         *sensors.GPS
	GPSPower    devices.GPIO
	Power       *sensors.PAC1720
	ADC         *sensors.ADC
	ADCVBatChan byte
	ADCVSolChan byte
	ADCLightChan byte
	BME         [3]*sensors.BME280
	Thermal     *sensors.Thermal
}

// request is a request_snapshot call in flight.
type request struct {
	needGPS bool
	reply   chan datapoint.DataPoint
}

// Collector is the Data Collector actor.
type Collector struct {
	cfg     config.GPSConfig
	sensors Sensors
	ring    *logring.Ring
	log     LogPrintf

	bootTime    time.Time
	resetCount  uint16

	reqCh  chan request
	stopCh chan struct{}
	wg     sync.WaitGroup

	// latest is published with atomic.Value so RequestSnapshot's fast path
	// (fresh enough, no refresh needed) never blocks on the actor goroutine.
	latest atomic.Value // holds datapoint.DataPoint
	nextID uint32

	mu           sync.Mutex // guards gpsOn/gpsPoweredAt/lastFixAt, actor-owned otherwise
	gpsOn        bool
	gpsPoweredAt time.Time
	lastFixAt    time.Time

	subMu sync.Mutex
	newCh chan struct{} // closed and replaced on every publish
}

// New builds a Collector. ring must already be open; New seeds the
// "latest" snapshot from the last valid log record if one exists, per spec
// §4.1 ("Initialises by reading the last valid LogRecord (if any) as seed").
func New(cfg config.GPSConfig, s Sensors, ring *logring.Ring, resetCount uint16, bootTime time.Time, log LogPrintf) *Collector {
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	c := &Collector{
		cfg: cfg, sensors: s, ring: ring, log: log,
		bootTime: bootTime, resetCount: resetCount,
		reqCh: make(chan request), stopCh: make(chan struct{}),
		newCh: make(chan struct{}),
	}
	seed := datapoint.DataPoint{GPSState: datapoint.GPSOff, SysTime: 0, ResetCount: resetCount}
	if last, err := ring.Latest(); err == nil {
		seed = last
		seed.GPSState = datapoint.GPSFromLog
	}
	c.latest.Store(seed)
	c.nextID = seed.ID + 1
	return c
}

// Run starts the Collector's actor loop; it returns when Stop is called.
// Within the Collector, only this goroutine calls thread.Realtime, per spec
// §5's "Collector runs at normal priority".
func (c *Collector) Run() {
	c.wg.Add(1)
	defer c.wg.Done()
	if err := thread.Realtime(thread.PriorityCollector); err != nil {
		c.log("collector: could not set realtime priority: %s", err)
	}
	for {
		select {
		case <-c.stopCh:
			return
		case req := <-c.reqCh:
			dp := c.refresh(req.needGPS)
			req.reply <- dp
		}
	}
}

// Stop signals the actor loop to exit and waits for it to do so.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// RequestSnapshot implements spec §4.1's request_snapshot(caller_intent)
// operation: it always triggers a refresh (the refresh itself decides
// whether a full re-sample is warranted), matching "refreshing it first if
// stale" — staleness here means "always", since the actor is the only
// component allowed to mutate sensor state and callers cannot observe how
// recently it last ran.
func (c *Collector) RequestSnapshot(ctx context.Context, needGPS bool) (datapoint.DataPoint, error) {
	reply := make(chan datapoint.DataPoint, 1)
	select {
	case c.reqCh <- request{needGPS: needGPS, reply: reply}:
	case <-ctx.Done():
		return datapoint.DataPoint{}, ctx.Err()
	case <-c.stopCh:
		return datapoint.DataPoint{}, errs.ErrTaskCancelled
	}
	select {
	case dp := <-reply:
		return dp, nil
	case <-ctx.Done():
		return datapoint.DataPoint{}, ctx.Err()
	}
}

// Latest returns the most recently published snapshot without going through
// the actor, for read-mostly callers (e.g. the geofence resolver) that don't
// need a fresh sample.
func (c *Collector) Latest() datapoint.DataPoint {
	return c.latest.Load().(datapoint.DataPoint)
}

// GetLog implements spec §4.1's get_log(index) indexed read, delegating to
// the log ring.
func (c *Collector) GetLog(index int) (datapoint.DataPoint, error) {
	dp, ok := c.ring.At(index)
	if !ok {
		return datapoint.DataPoint{}, errs.ErrNoPosition
	}
	return dp, nil
}

// WaitNew implements spec §4.1's subscribe_new()/wait_new(): it blocks until
// the id advances past the snapshot currently held, or ctx is done.
func (c *Collector) WaitNew(ctx context.Context) (datapoint.DataPoint, error) {
	c.subMu.Lock()
	ch := c.newCh
	c.subMu.Unlock()
	select {
	case <-ch:
		return c.Latest(), nil
	case <-ctx.Done():
		return datapoint.DataPoint{}, ctx.Err()
	}
}

// refresh runs the spec §4.1 refresh algorithm and returns the newly
// published snapshot. It never returns an error: individual sensor failures
// are folded into sys_error/status bits instead, per spec's "any sensor
// failure sets its status bit but does not abort the cycle".
func (c *Collector) refresh(needGPS bool) datapoint.DataPoint {
	prev := c.Latest()
	dp := datapoint.DataPoint{
		ID:         c.nextID,
		SysTime:    uint32(time.Since(c.bootTime).Seconds()),
		ResetCount: c.resetCount,
	}

	// Step 1: GPS power policy and fix.
	dp.GPSState, dp.GPSLat, dp.GPSLon, dp.GPSAlt, dp.GPSSats, dp.GPSTime, dp.GPSTTFF = c.refreshGPS(needGPS, prev, dp.SysTime)

	// Step 2: power meter + ADC.
	var sysErr uint32
	if c.sensors.Power != nil {
		if r, err := c.sensors.Power.ReadBattery(); err == nil {
			dp.PacVBat, dp.PacPBat = r.VoltageMv, r.PowerMw
		} else {
			sysErr |= datapoint.SysErrPowerMeter
		}
		if r, err := c.sensors.Power.ReadSolar(); err == nil {
			dp.PacVSol, dp.PacPSol = r.VoltageMv, r.PowerMw
		} else {
			sysErr |= datapoint.SysErrPowerMeter
		}
	}
	if c.sensors.ADC != nil {
		if v, err := c.sensors.ADC.ReadChannel(c.sensors.ADCVBatChan); err == nil {
			dp.AdcVBat = v
		}
		if v, err := c.sensors.ADC.ReadChannel(c.sensors.ADCVSolChan); err == nil {
			dp.AdcVSol = v
		}
		if v, err := c.sensors.ADC.LightIntensity(c.sensors.ADCLightChan); err == nil {
			dp.LightIntensity = v
		}
	}

	// Step 3: BME280s, strict order i1, e1, e2.
	bmeErrBits := [3]uint32{datapoint.SysErrBME0, datapoint.SysErrBME1, datapoint.SysErrBME2}
	for slot, bme := range c.sensors.BME {
		if bme == nil {
			dp.BME[slot] = datapoint.BMEReading{Status: datapoint.BMENotFitted}
			continue
		}
		dp.BME[slot] = bme.Read()
		if dp.BME[slot].Status == datapoint.BMEFail {
			sysErr |= bmeErrBits[slot]
		}
	}

	// Step 4: chip temperatures.
	if c.sensors.Thermal != nil {
		if v, err := c.sensors.Thermal.MCUTemp(); err == nil {
			dp.STM32Temp = v
		} else {
			sysErr |= datapoint.SysErrI2C
		}
		if v, err := c.sensors.Thermal.RadioTemp(); err == nil {
			dp.Si446xTemp = v
		} else {
			sysErr |= datapoint.SysErrI2C
		}
	}

	// Step 5: sys_error flags.
	dp.SysError = sysErr

	// Step 6: publish.
	c.nextID++
	c.latest.Store(dp)
	if err := c.ring.Append(dp); err != nil {
		c.log("collector: log ring append failed: %s", err)
	}
	c.subMu.Lock()
	close(c.newCh)
	c.newCh = make(chan struct{})
	c.subMu.Unlock()
	return dp
}

// refreshGPS implements spec §4.1's three-threshold GPS power policy and fix
// classification.
func (c *Collector) refreshGPS(needGPS bool, prev datapoint.DataPoint, sysTime uint32) (
	state datapoint.GPSState, lat, lon, alt int32, sats uint8, gpsTime int64, ttff uint16) {

	c.mu.Lock()
	defer c.mu.Unlock()

	vbat := prev.PacVBat
	if vbat == 0 {
		vbat = prev.AdcVBat
	}

	switch {
	case vbat != 0 && vbat < c.cfg.OffVBatMv:
		c.gpsOn = false
		return datapoint.GPSLowBattNeverOn, prev.GPSLat, prev.GPSLon, prev.GPSAlt, 0, prev.GPSTime, 0
	case c.gpsOn && vbat != 0 && vbat < c.cfg.OnPerVBatMv:
		c.gpsOn = false
		return datapoint.GPSLowBattEarlyOff, prev.GPSLat, prev.GPSLon, prev.GPSAlt, 0, prev.GPSTime, 0
	case !needGPS:
		if c.gpsOn {
			c.gpsOn = false
		}
		return datapoint.GPSOff, prev.GPSLat, prev.GPSLon, prev.GPSAlt, 0, prev.GPSTime, 0
	case !c.gpsOn && vbat != 0 && vbat < c.cfg.OnVBatMv:
		return datapoint.GPSOff, prev.GPSLat, prev.GPSLon, prev.GPSAlt, 0, prev.GPSTime, 0
	}

	if !c.gpsOn {
		c.gpsOn = true
		c.gpsPoweredAt = time.Now()
		if c.sensors.GPSPower != nil {
			c.sensors.GPSPower.Out(devices.GpioHigh)
		}
	}

	if c.sensors.GPS == nil {
		return datapoint.GPSError, prev.GPSLat, prev.GPSLon, prev.GPSAlt, 0, prev.GPSTime, 0
	}
	fix, err := c.sensors.GPS.Read()
	now := time.Now()
	if err != nil {
		if !c.lastFixAt.IsZero() && now.Sub(c.lastFixAt) > c.cfg.LogFallback {
			return datapoint.GPSFromLog, prev.GPSLat, prev.GPSLon, prev.GPSAlt, 0, prev.GPSTime, 0
		}
		return datapoint.GPSLoss, prev.GPSLat, prev.GPSLon, prev.GPSAlt, 0, prev.GPSTime, 0
	}
	c.lastFixAt = now
	ttffSec := uint16(now.Sub(c.gpsPoweredAt).Seconds())
	return datapoint.GPSLockedOn,
		int32(fix.Lat * 1e7), int32(fix.Lon * 1e7), int32(fix.Alt),
		uint8(fix.Sats), fix.At.Unix(), ttffSec
}
