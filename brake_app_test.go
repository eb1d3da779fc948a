package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPinger struct {
	mu    sync.Mutex
	pings int
}

func (p *countingPinger) Ping(ctx context.Context) *redis.StatusCmd {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pings++
	return redis.NewStatusResult("PONG", nil)
}

func (p *countingPinger) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pings
}

func TestBrakeApp_DestroyWaitsForHealthCheck(t *testing.T) {
	prev := redisHealthCheckPeriod
	redisHealthCheckPeriod = time.Millisecond
	defer func() { redisHealthCheckPeriod = prev }()

	ctx, cancel := context.WithCancel(context.Background())
	app := &BrakeApp{log: quietLogger(), ctx: ctx, cancel: cancel}

	client := &countingPinger{}
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.redisHealthCheck(ctx, client)
	}()

	require.Eventually(t, func() bool { return client.count() >= 2 }, time.Second, time.Millisecond)

	app.Destroy()
	pings := client.count()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, pings, client.count(), "health check kept running after shutdown")
}
