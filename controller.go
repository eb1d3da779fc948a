package main

import (
	"context"
	"sync"
	"time"

	"brake-service/brake"

	"github.com/brutella/can"
)

// controller owns the brake module. Every module call happens on the
// goroutine running Run.
type controller struct {
	log    *LeveledLogger
	module *brake.Module
	frames chan can.Frame
	period time.Duration
}

func newController(logger *LeveledLogger, module *brake.Module, period time.Duration) *controller {
	return &controller{
		log:    logger,
		module: module,
		frames: make(chan can.Frame, frameQueueSize),
		period: period,
	}
}

// Run services received frames and the periodic fault check until ctx is
// done, then disables the module.
func (c *controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.period)
	defer ticker.Stop()
	defer c.module.Disable()

	for {
		select {
		case <-ctx.Done():
			return

		case frame := <-c.frames:
			if err := c.module.ProcessFrame(frame); err != nil {
				c.log.Warn("Error handling CAN frame 0x%03X: %v", frame.ID, err)
			}

		case <-ticker.C:
			c.module.CheckForFaults()
			c.module.PublishStatusReport()
		}
	}
}

// statusMirror forwards status changes off the control goroutine. Offer
// never blocks: an update that finds the queue full is dropped and retried
// with the next report.
type statusMirror struct {
	log     *LeveledLogger
	publish func(brake.BrakeReport)
	updates chan brake.BrakeReport

	mu     sync.Mutex
	last   brake.BrakeReport
	primed bool
}

func newStatusMirror(logger *LeveledLogger, publish func(brake.BrakeReport)) *statusMirror {
	return &statusMirror{
		log:     logger,
		publish: publish,
		updates: make(chan brake.BrakeReport, mirrorQueueSize),
	}
}

func (m *statusMirror) Offer(report brake.BrakeReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.primed && report == m.last {
		return
	}

	select {
	case m.updates <- report:
		m.last = report
		m.primed = true
	default:
		m.log.Debug("Status mirror busy, update dropped")
	}
}

func (m *statusMirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case report := <-m.updates:
			m.publish(report)
		}
	}
}
