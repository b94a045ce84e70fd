// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/sdam/address"
	"go.mongodb.org/sdam/ismaster"
	"go.mongodb.org/sdam/pool"
)

func newTestMonitor(t *testing.T, caller IsMasterCaller) (*Monitor, *Cluster) {
	t.Helper()
	addr := address.MustParse("monitor-under-test:27017")
	c := New(NewSettings(WithSeeds(addr)))
	handle := newClusterHandle(c)
	m := NewMonitor(addr, pool.NewFakePool(), handle, Settings{
		HeartbeatInterval: 10 * time.Second,
		IsMasterCaller:    caller,
		Compressors:       []string{"snappy"},
		Logger:            c.log,
	})
	return m, c
}

func TestMonitor_RequestCheckIsNoOpAfterClose(t *testing.T) {
	var calls int32
	m, _ := newTestMonitor(t, func(pool.Socket) (ismaster.Reply, time.Duration, error) {
		atomic.AddInt32(&calls, 1)
		return ismaster.Reply{OK: true}, time.Millisecond, nil
	})

	m.Open()
	m.Close()
	m.RequestCheck()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop after Close")
	}
}

func TestMonitor_SelfClosesWhenClusterHandleIsDead(t *testing.T) {
	m, _ := newTestMonitor(t, func(pool.Socket) (ismaster.Reply, time.Duration, error) {
		return ismaster.Reply{OK: true}, time.Millisecond, nil
	})
	m.handle.kill()

	m.Open()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("Monitor did not self-close when its cluster handle was dead")
	}
}

func TestMonitor_CloseIsIdempotent(t *testing.T) {
	m, _ := newTestMonitor(t, func(pool.Socket) (ismaster.Reply, time.Duration, error) {
		return ismaster.Reply{OK: true}, time.Millisecond, nil
	})
	m.Open()
	m.Close()
	assert.NotPanics(t, m.Close)

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("Monitor did not stop")
	}
}

func TestDefaultIsMasterCaller_NoCodecConfiguredFails(t *testing.T) {
	caller := DefaultIsMasterCaller(nil, nil)
	_, _, err := caller(&fakeSocket{})
	require.Error(t, err)
}

type fakeSocket struct{}

func (fakeSocket) SendMessage([]byte) error            { return nil }
func (fakeSocket) ReceiveMessage(int32) ([]byte, error) { return nil, nil }
func (fakeSocket) Close() error                         { return nil }
