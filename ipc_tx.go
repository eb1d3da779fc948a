package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
)

const (
	ipcBrakeKey           = "brake"
	ipcBrakeStatusChannel = "brake status"
)

type IPCTx struct {
	log   *LeveledLogger
	redis *redis.Client
	mu    sync.Mutex
	ctx   context.Context
}

func NewIPCTx(logger *LeveledLogger, redis *redis.Client) *IPCTx {
	return &IPCTx{
		log:   logger,
		redis: redis,
		ctx:   context.Background(),
	}
}

func (tx *IPCTx) Destroy() {}

func (tx *IPCTx) SendStatus(data RedisBrakeStatus) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	pipe := tx.redis.Pipeline()

	pipe.HSet(tx.ctx, ipcBrakeKey, map[string]interface{}{
		"state":             map[bool]string{true: "enabled", false: "disabled"}[data.Enabled],
		"operator-override": map[bool]string{true: "on", false: "off"}[data.OperatorOverride],
		"dtcs":              fmt.Sprintf("%02X", data.DTCs),
	})

	pipe.Publish(tx.ctx, ipcBrakeStatusChannel, nil)

	if _, err := pipe.Exec(tx.ctx); err != nil {
		return fmt.Errorf("failed to send brake status: %w", err)
	}

	return nil
}
