// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/sdam/address"
	"go.mongodb.org/sdam/description"
	"go.mongodb.org/sdam/ismaster"
	"go.mongodb.org/sdam/pool"
	"go.mongodb.org/sdam/selector"
)

// poolTracker hands out a *pool.FakePool per (address, call-order) so a
// test can reach back into the exact pool a Server or Monitor is using.
type poolTracker struct {
	mu    sync.Mutex
	pools map[address.Address][]*pool.FakePool
}

func newPoolTracker() *poolTracker {
	return &poolTracker{pools: map[address.Address][]*pool.FakePool{}}
}

func (pt *poolTracker) factory(addr address.Address) pool.ConnectionPool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	p := pool.NewFakePool()
	pt.pools[addr] = append(pt.pools[addr], p)
	return p
}

// appPool is the first pool built for addr (see Cluster.addServerLocked:
// the application pool is always requested before the Monitor's probe
// pool).
func (pt *poolTracker) appPool(addr address.Address) *pool.FakePool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.pools[addr][0]
}

func standaloneReply() ismaster.Reply {
	return ismaster.Reply{
		OK:             true,
		ServerType:     description.Standalone,
		MaxBSONSize:    description.DefaultMaxBSONSize,
		MaxWriteBatch:  description.DefaultMaxWriteBatchSize,
		MinWireVersion: 0,
		MaxWireVersion: 17,
	}
}

func TestCluster_DiscoversAndSelectsAStandalone(t *testing.T) {
	addr := address.MustParse("standalone:27017")
	pt := newPoolTracker()

	settings := NewSettings(
		WithSeeds(addr),
		WithHeartbeatInterval(10*time.Second),
		WithPoolFactory(pt.factory),
		WithIsMasterCaller(func(pool.Socket) (ismaster.Reply, time.Duration, error) {
			return standaloneReply(), time.Millisecond, nil
		}),
	)

	c := New(settings)
	require.NoError(t, c.Open())
	defer c.Close()

	candidates, err := c.SelectServers(selector.Writable, 2*time.Second)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, addr, candidates[0].Address)
	assert.Equal(t, description.Single, c.Description().ClusterType)
}

func TestCluster_DirectConnectionBypassesSelector(t *testing.T) {
	addr := address.MustParse("secondary:27017")
	pt := newPoolTracker()

	settings := NewSettings(
		WithSeeds(addr),
		WithHeartbeatInterval(10*time.Second),
		WithPoolFactory(pt.factory),
		WithIsMasterCaller(func(pool.Socket) (ismaster.Reply, time.Duration, error) {
			r := standaloneReply()
			r.ServerType = description.RSSecondary
			r.SetName = "rs0"
			return r, time.Millisecond, nil
		}),
	)

	c := New(settings)
	require.NoError(t, c.Open())
	defer c.Close()

	require.Eventually(t, func() bool {
		sd, ok := c.Description().Server(addr)
		return ok && sd.ServerType == description.RSSecondary
	}, 2*time.Second, 10*time.Millisecond, "server never came up")

	candidates, err := c.SelectServers(selector.Writable, time.Second)
	require.NoError(t, err, "a direct connection must bypass the selector entirely")
	require.Len(t, candidates, 1)
	assert.Equal(t, addr, candidates[0].Address)
}

func TestCluster_SelectServersTimesOutWithNoSuitableServer(t *testing.T) {
	addr := address.MustParse("down:27017")
	pt := newPoolTracker()

	settings := NewSettings(
		WithSeeds(addr),
		WithHeartbeatInterval(10*time.Second),
		WithPoolFactory(pt.factory),
		WithIsMasterCaller(func(pool.Socket) (ismaster.Reply, time.Duration, error) {
			return ismaster.Reply{}, time.Millisecond, errors.New("connection refused")
		}),
	)

	c := New(settings)
	require.NoError(t, c.Open())
	defer c.Close()

	_, err := c.SelectServers(selector.Any, 300*time.Millisecond)
	require.Error(t, err)

	var selErr *ServerSelectionError
	require.True(t, errors.As(err, &selErr))
	assert.ErrorIs(t, err, ErrNoSuitableServers)
}

func TestCluster_PoolResetOnFailedHeartbeat(t *testing.T) {
	addr := address.MustParse("flaky:27017")
	pt := newPoolTracker()

	var failing int32
	settings := NewSettings(
		WithSeeds(addr),
		WithHeartbeatInterval(5*time.Second),
		WithPoolFactory(pt.factory),
		WithIsMasterCaller(func(pool.Socket) (ismaster.Reply, time.Duration, error) {
			if atomic.LoadInt32(&failing) == 1 {
				return ismaster.Reply{}, time.Millisecond, errors.New("simulated failure")
			}
			return standaloneReply(), time.Millisecond, nil
		}),
	)

	c := New(settings)
	require.NoError(t, c.Open())
	defer c.Close()

	require.Eventually(t, func() bool {
		sd, ok := c.Description().Server(addr)
		return ok && sd.ServerType == description.Standalone
	}, 2*time.Second, 10*time.Millisecond, "server never came up")

	atomic.StoreInt32(&failing, 1)
	c.RequestCheckAll()

	require.Eventually(t, func() bool {
		sd, ok := c.Description().Server(addr)
		return ok && sd.ServerType == description.Unknown
	}, 3*time.Second, 20*time.Millisecond, "server never went down")

	// probeWithRetry resets the pool exactly once per heartbeat cycle that
	// hits a failure, regardless of whether its retry also fails
	// (spec.md §8 scenario 8).
	assert.Equal(t, 1, pt.appPool(addr).ResetCount())
}

func TestCluster_IncompatibleWireVersionFailsSelectionImmediately(t *testing.T) {
	addr := address.MustParse("toonew:27017")
	pt := newPoolTracker()

	settings := NewSettings(
		WithSeeds(addr),
		WithHeartbeatInterval(10*time.Second),
		WithPoolFactory(pt.factory),
		WithIsMasterCaller(func(pool.Socket) (ismaster.Reply, time.Duration, error) {
			r := standaloneReply()
			r.MinWireVersion = 100
			r.MaxWireVersion = 101
			return r, time.Millisecond, nil
		}),
	)

	c := New(settings)
	require.NoError(t, c.Open())
	defer c.Close()

	require.Eventually(t, func() bool {
		return c.Description().HasServer(addr)
	}, 2*time.Second, 10*time.Millisecond)

	start := time.Now()
	_, err := c.SelectServers(selector.Any, 5*time.Second)
	elapsed := time.Since(start)

	require.Error(t, err)
	var compatErr *description.CompatibilityError
	assert.True(t, errors.As(err, &compatErr))
	assert.Less(t, elapsed, 1*time.Second, "a known incompatibility must not wait out the full timeout")
}

func TestCluster_CloseStopsMonitorsAndUnblocksSelectors(t *testing.T) {
	addr := address.MustParse("closing:27017")
	pt := newPoolTracker()

	settings := NewSettings(
		WithSeeds(addr),
		WithHeartbeatInterval(10*time.Second),
		WithPoolFactory(pt.factory),
		WithIsMasterCaller(func(pool.Socket) (ismaster.Reply, time.Duration, error) {
			return ismaster.Reply{}, time.Millisecond, errors.New("nobody home")
		}),
	)

	c := New(settings)
	require.NoError(t, c.Open())

	done := make(chan error, 1)
	go func() {
		_, err := c.SelectServers(selector.Any, 5*time.Second)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClusterClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock a pending SelectServers call")
	}

	_, err := c.SelectServers(selector.Any, time.Second)
	assert.ErrorIs(t, err, ErrClusterClosed)
}

func TestCluster_DoubleCloseIsSafe(t *testing.T) {
	addr := address.MustParse("idempotent:27017")
	pt := newPoolTracker()
	settings := NewSettings(
		WithSeeds(addr),
		WithPoolFactory(pt.factory),
		WithIsMasterCaller(func(pool.Socket) (ismaster.Reply, time.Duration, error) {
			return standaloneReply(), time.Millisecond, nil
		}),
	)

	c := New(settings)
	require.NoError(t, c.Open())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrServerClosed)
}

func TestCluster_ReopenFailsWithInvalidState(t *testing.T) {
	addr := address.MustParse("reopened:27017")
	pt := newPoolTracker()
	settings := NewSettings(
		WithSeeds(addr),
		WithPoolFactory(pt.factory),
		WithIsMasterCaller(func(pool.Socket) (ismaster.Reply, time.Duration, error) {
			return standaloneReply(), time.Millisecond, nil
		}),
	)

	c := New(settings)
	require.NoError(t, c.Open())
	defer c.Close()

	assert.ErrorIs(t, c.Open(), ErrInvalidState)
}
