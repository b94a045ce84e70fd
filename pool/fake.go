// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package pool

import (
	"errors"
	"sync"
)

// ErrFakePoolReset is returned by a FakeSocket born before a Reset once
// that Reset has happened, so callers can see pool invalidation the same
// way a real network failure would surface.
var ErrFakePoolReset = errors.New("pool: fake pool was reset")

// FakePool is an in-memory ConnectionPool double: GetSocket hands out a
// FakeSocket stamped with the pool's current generation, and Reset bumps
// the generation so every previously-issued socket starts failing.
// Exercised by this module's own topology tests in place of a real
// dialer, since the pool's network implementation is an external
// collaborator (spec.md §1).
type FakePool struct {
	mu          sync.Mutex
	generation  int
	resetCount  int
	dialErr     error
	getSocketFn func() (Socket, error)
}

// NewFakePool returns a FakePool that hands out plain FakeSockets.
func NewFakePool() *FakePool {
	return &FakePool{}
}

// NewFakePoolFunc returns a FakePool whose GetSocket defers entirely to
// get, for tests that need to script arbitrary per-call behavior.
func NewFakePoolFunc(get func() (Socket, error)) *FakePool {
	return &FakePool{getSocketFn: get}
}

// SetDialError makes every subsequent GetSocket call fail with err.
func (p *FakePool) SetDialError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialErr = err
}

// ResetCount reports how many times Reset has been called, so a test can
// assert how many heartbeat cycles with a failed probe invalidated the pool
// (a Monitor resets the pool once per such cycle, even when its retry also
// fails).
func (p *FakePool) ResetCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetCount
}

// GetSocket implements ConnectionPool.
func (p *FakePool) GetSocket() (Socket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.getSocketFn != nil {
		return p.getSocketFn()
	}
	if p.dialErr != nil {
		return nil, p.dialErr
	}
	return &FakeSocket{pool: p, generation: p.generation}, nil
}

// MaybeReturnSocket implements ConnectionPool; a FakeSocket needs no
// bookkeeping on return.
func (p *FakePool) MaybeReturnSocket(Socket) {}

// Reset implements ConnectionPool.
func (p *FakePool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.generation++
	p.resetCount++
}

func (p *FakePool) stale(generation int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return generation != p.generation
}

// FakeSocket is a Socket bound to one FakePool generation. Once its pool
// has been Reset past that generation, every call fails with
// ErrFakePoolReset.
type FakeSocket struct {
	pool       *FakePool
	generation int
	closed     bool
}

// SendMessage implements Socket; FakeSocket does no real I/O, so this only
// checks liveness.
func (s *FakeSocket) SendMessage([]byte) error {
	if s.closed || s.pool.stale(s.generation) {
		return ErrFakePoolReset
	}
	return nil
}

// ReceiveMessage implements Socket; real reply production is scripted by
// whatever IsMasterCaller a test installs instead, so this always fails if
// it's ever actually invoked.
func (s *FakeSocket) ReceiveMessage(int32) ([]byte, error) {
	if s.closed || s.pool.stale(s.generation) {
		return nil, ErrFakePoolReset
	}
	return nil, errors.New("pool: FakeSocket has no scripted reply; supply an IsMasterCaller instead")
}

// Close implements Socket.
func (s *FakeSocket) Close() error {
	s.closed = true
	return nil
}
