// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package topology assembles description.Apply, ismaster.Parse, and a
// ConnectionPool contract into a running system: a Cluster that owns one
// Monitor per known address and blocks callers in SelectServers until a
// suitable server appears or a deadline passes (spec.md §4.3-§4.4).
package topology

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go.mongodb.org/sdam/address"
	"go.mongodb.org/sdam/description"
	"go.mongodb.org/sdam/internal/logger"
	"go.mongodb.org/sdam/selector"
)

// Cluster is the top-level runtime object: it owns a Server (application
// pool + Monitor) per known address, the current ClusterDescription, and
// the single lock/condition-variable pair that SelectServers blocks on.
//
// Concurrency: mu guards every field below and is the L of cond. Every
// Monitor learns of topology changes only by calling back through a
// clusterHandle into onServerDescription; Cluster never reaches into a
// Monitor except via Server.RequestCheck/ResetPool/close, so there is no
// lock-ordering cycle between a Cluster and its Monitors (spec.md §9
// "Concurrency & Resource Model").
type Cluster struct {
	settings Settings
	log      *logger.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	opened    bool
	closed    bool
	desc      description.ClusterDescription
	servers   map[address.Address]*Server
	handle    *clusterHandle
	compatErr error
}

// New constructs a Cluster from settings. It does not start monitoring
// until Open is called.
func New(settings Settings) *Cluster {
	c := &Cluster{
		settings: settings,
		log:      settings.Logger,
		servers:  map[address.Address]*Server{},
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Open starts monitoring every configured seed. Calling Open a second time
// fails with ErrInvalidState (spec.md §4.4, §7).
func (c *Cluster) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opened {
		return ErrInvalidState
	}
	c.opened = true
	c.desc = description.NewClusterDescription(c.settings.initialClusterType())
	c.desc.SetName = c.settings.SetName
	c.handle = newClusterHandle(c)

	for _, addr := range c.settings.Seeds {
		c.addServerLocked(addr)
	}

	c.log.Print(logger.LevelInfo, logger.TopologyOpening{SetName: c.settings.SetName})
	return nil
}

// addServerLocked creates a Server (and its Monitor) for addr and starts
// probing. Callers must hold c.mu.
func (c *Cluster) addServerLocked(addr address.Address) {
	if _, ok := c.servers[addr]; ok {
		return
	}
	if !c.desc.HasServer(addr) {
		c.desc.Servers[addr] = description.NewDefaultServerDescription(addr)
	}

	factory := c.settings.PoolFactory
	appPool := factory(addr)
	probePool := factory(addr)

	monitor := NewMonitor(addr, probePool, c.handle, c.settings)
	srv := newServer(addr, appPool, monitor)
	c.servers[addr] = srv
	monitor.Open()
}

// onServerDescription is the single entry point every Monitor calls
// through its clusterHandle after a probe. It runs the pure transition
// function, reconciles the Server set against the result, and wakes any
// caller blocked in SelectServers (spec.md §4.2/§4.4).
func (c *Cluster) onServerDescription(sd description.ServerDescription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if _, ok := c.servers[sd.Address]; !ok {
		// This address was already removed (e.g. it raced its own
		// removal from a previous update); drop the stale report.
		return
	}

	prev := c.desc
	next := description.Apply(c.desc, sd)
	c.desc = next
	c.compatErr = next.CheckCompatible(DriverSupportedWireVersions)

	c.reconcileLocked(next)

	c.log.Print(logger.LevelInfo, logger.TopologyDescriptionChanged{Previous: prev, New: next})
	c.cond.Broadcast()
}

// reconcileLocked makes c.servers match next.Servers: adding a Server (and
// starting its Monitor) for every newly-discovered address, closing and
// dropping a Server for every address the transition function removed, and
// pushing the latest description to every Server that survives. Callers
// must hold c.mu.
func (c *Cluster) reconcileLocked(next description.ClusterDescription) {
	for addr := range next.Servers {
		if _, ok := c.servers[addr]; !ok {
			c.addServerLocked(addr)
		}
	}

	for addr, srv := range c.servers {
		if _, ok := next.Servers[addr]; !ok {
			delete(c.servers, addr)
			go srv.close()
			continue
		}
		srv.setDescription(next.Servers[addr])
	}
}

// ResetPool invalidates addr's application-facing pool. Called by a
// Monitor (via its clusterHandle) after a failed probe, and safe to call
// for an address no longer tracked.
func (c *Cluster) ResetPool(addr address.Address) {
	c.mu.Lock()
	srv, ok := c.servers[addr]
	c.mu.Unlock()
	if ok {
		srv.ResetPool()
	}
}

// RequestCheckAll asks every known Monitor to probe immediately rather than
// waiting out its heartbeat interval.
func (c *Cluster) RequestCheckAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCheckAllLocked()
}

func (c *Cluster) requestCheckAllLocked() {
	for _, srv := range c.servers {
		srv.RequestCheck()
	}
}

// Description returns the current ClusterDescription.
func (c *Cluster) Description() description.ClusterDescription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.desc
}

// HasServer reports whether addr is currently tracked.
func (c *Cluster) HasServer(addr address.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.servers[addr]
	return ok
}

// GetServerByAddress returns the tracked Server for addr, if any.
func (c *Cluster) GetServerByAddress(addr address.Address) (*Server, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	srv, ok := c.servers[addr]
	return srv, ok
}

// SelectServers blocks until sel accepts at least one known server, the
// cluster is found incompatible, or timeout elapses, whichever comes
// first. The entire check-then-request-then-wait cycle runs with c.mu held
// so a topology change delivered between the check and the wait can never
// be missed (spec.md §9 "Blocking select without missed wakeups").
func (c *Cluster) SelectServers(sel selector.Selector, timeout time.Duration) ([]description.ServerDescription, error) {
	c.log.Print(logger.LevelDebug, logger.ServerSelectionStarted{})
	deadline := time.Now().Add(timeout)

	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.closed {
			return nil, ErrClusterClosed
		}
		if c.compatErr != nil {
			c.log.Print(logger.LevelDebug, logger.ServerSelectionFailed{Err: c.compatErr})
			return nil, c.compatErr
		}

		// A direct connection bypasses the selector entirely: the sole
		// known server is the answer regardless of what sel would have
		// chosen (spec.md §4.4, §8: "returns the single server regardless
		// of the selector").
		candidates := c.desc.KnownServers()
		if c.desc.ClusterType != description.Single {
			candidates = sel(candidates)
		}
		if len(candidates) > 0 {
			c.log.Print(logger.LevelDebug, logger.ServerSelectionSucceeded{Address: candidates[0].Address.String()})
			return candidates, nil
		}

		if !time.Now().Before(deadline) {
			err := &ServerSelectionError{Wrapped: ErrNoSuitableServers, Desc: c.desc}
			c.log.Print(logger.LevelDebug, logger.ServerSelectionFailed{Err: err})
			return nil, err
		}

		c.requestCheckAllLocked()
		c.waitUntilLocked(deadline)
	}
}

// waitUntilLocked blocks on c.cond until Broadcast or deadline, whichever
// comes first. Must be called with c.mu held.
func (c *Cluster) waitUntilLocked(deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()
	c.cond.Wait()
}

// Close stops every Monitor, invalidates every pool, and unblocks any
// caller parked in SelectServers. Close waits for every Monitor's probe
// goroutine to exit, joining them concurrently with errgroup rather than
// one at a time. Every call after the first fails with ErrServerClosed
// (spec.md §4.4: "subsequent calls are errors").
func (c *Cluster) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrServerClosed
	}
	if !c.opened {
		c.closed = true
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	handle := c.handle
	servers := c.servers
	c.servers = map[address.Address]*Server{}
	c.mu.Unlock()

	handle.kill()

	doneChs := make([]<-chan struct{}, 0, len(servers))
	for _, srv := range servers {
		doneChs = append(doneChs, srv.close())
	}

	var g errgroup.Group
	for _, done := range doneChs {
		done := done
		g.Go(func() error {
			<-done
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	c.cond.Broadcast()
	c.mu.Unlock()

	c.log.Print(logger.LevelInfo, logger.TopologyClosed{})
	c.log.Close()
	return nil
}
