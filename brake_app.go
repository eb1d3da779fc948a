package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brake-service/brake"
	"brake-service/config"

	"github.com/brutella/can"
	"github.com/go-redis/redis/v8"
)

const (
	frameQueueSize  = 64
	mirrorQueueSize = 8
)

var redisHealthCheckPeriod = 30 * time.Second

// pinger is the part of *redis.Client the health check uses
type pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

type BrakeApp struct {
	log        *LeveledLogger
	redis      *redis.Client
	ipcTx      *IPCTx
	diag       *Diag
	hardware   *Hardware
	bus        *can.Bus
	controller *controller
	mirror     *statusMirror
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
}

func NewBrakeApp(opts *Options, logger *LeveledLogger) (*BrakeApp, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &BrakeApp{
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Backend != "" {
		cfg.Hardware.Backend = opts.Backend
	}
	app.log.Info("Configuration loaded from %s (backend %s, period %s)",
		opts.ConfigPath, cfg.Hardware.Backend, cfg.Brake.ControlPeriod)

	if opts.RedisServerAddr != "" {
		if err := app.connectRedis(opts); err != nil {
			cancel()
			return nil, err
		}
	} else {
		app.log.Info("Redis mirror disabled")
	}

	app.hardware, err = NewHardware(cfg.Hardware, cfg.Brake, app.log)
	if err != nil {
		app.Destroy()
		return nil, fmt.Errorf("failed to open hardware: %w", err)
	}

	bus, err := can.NewBusForInterfaceWithName(opts.CANDevice)
	if err != nil {
		app.Destroy()
		return nil, fmt.Errorf("failed to initialize CAN bus: %w", err)
	}
	app.bus = bus

	module, err := brake.NewModule(brake.ModuleConfig{
		Logger:         app.log,
		Bus:            bus,
		ADC:            app.hardware.ADC,
		DAC:            app.hardware.DAC,
		SpoofEnable:    app.hardware.SpoofEnable,
		BrakeLight:     app.hardware.BrakeLight,
		PedalHighInput: app.hardware.HighInput,
		PedalLowInput:  app.hardware.LowInput,
		Tuning:         cfg.Brake,
	})
	if err != nil {
		app.Destroy()
		return nil, fmt.Errorf("failed to create brake module: %w", err)
	}

	if err := module.Init(); err != nil {
		app.Destroy()
		return nil, fmt.Errorf("failed to initialize brake module: %w", err)
	}

	module.SetFaultCallback(func(report brake.FaultReport) {
		app.log.Warn("Fault report sent: DTCs 0x%02X", uint8(report.DTCs))
	})

	if app.redis != nil {
		app.mirror = newStatusMirror(app.log, app.publishStatus)
		module.SetStatusCallback(app.mirror.Offer)

		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			app.mirror.Run(ctx)
		}()
	}

	app.controller = newController(app.log, module, cfg.Brake.ControlPeriod)

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.controller.Run(ctx)
	}()
	app.log.Info("Brake controller started")

	bus.Subscribe(&frameHandler{ctx: ctx, frames: app.controller.frames})

	go func() {
		if err := bus.ConnectAndPublish(); err != nil {
			app.log.Error("CAN bus publish error: %v", err)
		}
	}()
	app.log.Info("CAN bus %s connected", opts.CANDevice)

	return app, nil
}

func (app *BrakeApp) connectRedis(opts *Options) error {
	app.redis = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", opts.RedisServerAddr, opts.RedisServerPort),
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	connectCtx, connectCancel := context.WithTimeout(app.ctx, 5*time.Second)
	defer connectCancel()

	app.log.Info("Connecting to Redis at %s:%d...", opts.RedisServerAddr, opts.RedisServerPort)

	if err := app.redis.Ping(connectCtx).Err(); err != nil {
		app.redis.Close()
		app.redis = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.log.Info("Successfully connected to Redis")

	app.ipcTx = NewIPCTx(app.log, app.redis)
	app.diag = NewDiag(app.log, app.redis)

	if err := app.ipcTx.SendStatus(RedisBrakeStatus{}); err != nil {
		app.log.Warn("Failed to write default brake state: %v", err)
	}

	app.wg.Add(1)
	go func(client *redis.Client) {
		defer app.wg.Done()
		app.redisHealthCheck(app.ctx, client)
	}(app.redis)

	return nil
}

func (app *BrakeApp) publishStatus(report brake.BrakeReport) {
	status := RedisBrakeStatus{
		Enabled:          report.Enabled,
		OperatorOverride: report.OperatorOverride,
		DTCs:             uint8(report.DTCs),
	}

	if err := app.ipcTx.SendStatus(status); err != nil {
		app.log.Warn("Failed to mirror brake status: %v", err)
	}
	app.diag.SetDTCs(report.DTCs)
}

// frameHandler hands received frames to the control loop
type frameHandler struct {
	ctx    context.Context
	frames chan<- can.Frame
}

func (h *frameHandler) Handle(frame can.Frame) {
	select {
	case h.frames <- frame:
	case <-h.ctx.Done():
	}
}

func (app *BrakeApp) redisHealthCheck(ctx context.Context, client pinger) {
	ticker := time.NewTicker(redisHealthCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := client.Ping(pingCtx).Err(); err != nil {
				app.log.Warn("Redis health check failed: %v", err)
			}
			cancel()
		}
	}
}

func (app *BrakeApp) Destroy() {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.log.Info("Shutting down brake application...")

	// the controller hands the brake back to the driver on its way out
	if app.cancel != nil {
		app.cancel()
	}
	app.wg.Wait()

	if app.bus != nil {
		if err := app.bus.Disconnect(); err != nil {
			app.log.Warn("Error disconnecting CAN bus: %v", err)
		}
		app.bus = nil
	}

	if app.hardware != nil {
		if err := app.hardware.Close(); err != nil {
			app.log.Warn("Error closing hardware: %v", err)
		}
		app.hardware = nil
	}

	if app.diag != nil {
		app.diag.Destroy()
	}

	if app.ipcTx != nil {
		app.ipcTx.Destroy()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.log.Warn("Error closing Redis connection: %v", err)
		} else {
			app.log.Info("Redis connection closed")
		}
		app.redis = nil
	}

	app.log.Info("Brake application shutdown complete")
}
