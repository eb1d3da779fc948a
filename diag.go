package main

import (
	"context"
	"sync"

	"brake-service/brake"

	"github.com/go-redis/redis/v8"
)

const (
	diagGroupName           = "brake"
	diagFaultSetKey         = "brake:fault"
	diagEventStream         = "events:faults"
	diagEventStreamMaxLen   = 1000
	diagNotificationChannel = "brake"
)

// Diag mirrors the brake DTCs into the vehicle's fault registry
type Diag struct {
	log    *LeveledLogger
	redis  *redis.Client
	mu     sync.Mutex
	active brake.DTCBitfield
	ctx    context.Context
}

func NewDiag(logger *LeveledLogger, redis *redis.Client) *Diag {
	return &Diag{
		log:   logger,
		redis: redis,
		ctx:   context.Background(),
	}
}

func (d *Diag) Destroy() {}

// diagCode is the fault registry code of a DTC. Codes start at 1 so that a
// negated code can mark the fault as cleared.
func diagCode(dtc brake.DTC) int32 {
	return int32(dtc) + 1
}

// SetDTCs reports every DTC that appeared or disappeared since the last call
func (d *Diag) SetDTCs(dtcs brake.DTCBitfield) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dtcs == d.active {
		return
	}

	for dtc := brake.DTC(0); dtc < 8; dtc++ {
		was, now := d.active.Has(dtc), dtcs.Has(dtc)
		if was == now {
			continue
		}

		description := brake.GetDTCDescription(dtc)
		if now {
			d.log.Warn("Fault set: code=%d, description=%s", dtc, description)
			d.reportFaultPresent(dtc, description)
		} else {
			d.log.Info("Fault cleared: code=%d, description=%s", dtc, description)
			d.reportFaultAbsent(dtc)
		}
	}

	d.active = dtcs
}

func (d *Diag) reportFaultPresent(dtc brake.DTC, description string) {
	pipe := d.redis.Pipeline()

	pipe.SAdd(d.ctx, diagFaultSetKey, diagCode(dtc))

	pipe.XAdd(d.ctx, &redis.XAddArgs{
		Stream: diagEventStream,
		MaxLen: diagEventStreamMaxLen,
		Values: map[string]interface{}{
			"group":       diagGroupName,
			"code":        diagCode(dtc),
			"description": description,
		},
	})

	pipe.Publish(d.ctx, diagNotificationChannel, "fault")

	if _, err := pipe.Exec(d.ctx); err != nil {
		d.log.Error("Failed to report fault present: %v", err)
	}
}

func (d *Diag) reportFaultAbsent(dtc brake.DTC) {
	pipe := d.redis.Pipeline()

	pipe.SRem(d.ctx, diagFaultSetKey, diagCode(dtc))

	pipe.XAdd(d.ctx, &redis.XAddArgs{
		Stream: diagEventStream,
		MaxLen: diagEventStreamMaxLen,
		Values: map[string]interface{}{
			"group": diagGroupName,
			"code":  -diagCode(dtc),
		},
	})

	pipe.Publish(d.ctx, diagNotificationChannel, "fault")

	if _, err := pipe.Exec(d.ctx); err != nil {
		d.log.Error("Failed to report fault absent: %v", err)
	}
}
