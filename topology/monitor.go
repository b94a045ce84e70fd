// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/sdam/address"
	"go.mongodb.org/sdam/description"
	"go.mongodb.org/sdam/internal/logger"
	"go.mongodb.org/sdam/ismaster"
	"go.mongodb.org/sdam/pool"
	"go.mongodb.org/sdam/wiremessage"
)

// IsMasterCaller performs one ismaster round trip over s and reports the
// parsed reply and the round-trip time it took. Grounded on pymongo's
// monitor.Monitor call_ismaster_fn constructor parameter: tests and demos
// substitute their own IsMasterCaller to bypass wire I/O entirely.
type IsMasterCaller func(s pool.Socket) (ismaster.Reply, time.Duration, error)

// DefaultIsMasterCaller builds the production IsMasterCaller: send the
// query encode produces, read the reply, hand it to decode, then parse it.
// encode/decode are the wire-protocol collaborator spec.md §1 places out of
// scope; a nil encode or decode makes every probe fail, which is the
// correct behavior for a Settings that never configured one.
func DefaultIsMasterCaller(
	encode func() []byte,
	decode func([]byte) (wiremessage.Document, error),
) IsMasterCaller {
	return func(s pool.Socket) (ismaster.Reply, time.Duration, error) {
		if encode == nil || decode == nil {
			return ismaster.Reply{}, 0, errNoWireCodec
		}

		start := time.Now()
		if err := s.SendMessage(encode()); err != nil {
			return ismaster.Reply{}, time.Since(start), err
		}
		raw, err := s.ReceiveMessage(1)
		if err != nil {
			return ismaster.Reply{}, time.Since(start), err
		}
		rtt := time.Since(start)

		doc, err := decode(raw)
		if err != nil {
			return ismaster.Reply{}, rtt, err
		}
		reply, err := ismaster.Parse(doc)
		return reply, rtt, err
	}
}

var errNoWireCodec = errNoWireCodecErr{}

type errNoWireCodecErr struct{}

func (errNoWireCodecErr) Error() string {
	return "topology: no wire-protocol encoder/decoder configured"
}

// clusterHandle is this module's stand-in for pymongo's weakref.proxy from
// Monitor to Cluster: Go has no transparent weak reference, so instead a
// Monitor holds a clusterHandle and checks its closed flag before ever
// calling back into the Cluster. Cluster.Close kills every handle it
// issued; a Monitor that observes a dead handle closes itself, exactly as
// pymongo's monitor does on weakref.ReferenceError (see
// SPEC_FULL.md §4 "Monitor weak-reference-to-dead-Cluster self-close").
type clusterHandle struct {
	closed  int32
	cluster *Cluster
}

func newClusterHandle(c *Cluster) *clusterHandle {
	return &clusterHandle{cluster: c}
}

func (h *clusterHandle) kill() {
	atomic.StoreInt32(&h.closed, 1)
}

func (h *clusterHandle) dead() bool {
	return atomic.LoadInt32(&h.closed) == 1
}

func (h *clusterHandle) onChange(sd description.ServerDescription) error {
	if h.dead() {
		return errDeadCluster
	}
	h.cluster.onServerDescription(sd)
	return nil
}

func (h *clusterHandle) resetPool(addr address.Address) error {
	if h.dead() {
		return errDeadCluster
	}
	h.cluster.ResetPool(addr)
	return nil
}

var errDeadCluster = deadClusterErr{}

type deadClusterErr struct{}

func (deadClusterErr) Error() string { return "topology: cluster handle is closed" }

// Monitor runs the background probe loop for a single address: send an
// ismaster query over its own private pool on a fixed interval (or sooner,
// on RequestCheck), classify the reply, and push the resulting
// ServerDescription to its Cluster (spec.md §4.3).
type Monitor struct {
	address address.Address
	pool    pool.ConnectionPool
	handle  *clusterHandle
	caller  IsMasterCaller

	heartbeatInterval time.Duration
	compressors       []string

	log *logger.Logger

	mu            sync.Mutex
	cond          *sync.Cond
	stopped       bool
	wakeRequested bool
	lastProbeAt   time.Time
	prevDesc      description.ServerDescription

	done chan struct{}
	once sync.Once
}

// NewMonitor constructs a Monitor for addr. It does not start probing until
// Open is called.
func NewMonitor(
	addr address.Address,
	p pool.ConnectionPool,
	handle *clusterHandle,
	settings Settings,
) *Monitor {
	m := &Monitor{
		address:           addr,
		pool:              p,
		handle:            handle,
		caller:            settings.IsMasterCaller,
		heartbeatInterval: settings.HeartbeatInterval,
		compressors:       settings.Compressors,
		log:               settings.Logger,
		prevDesc:          description.NewDefaultServerDescription(addr),
		done:              make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Open starts the background probe goroutine.
func (m *Monitor) Open() {
	go m.run()
}

// RequestCheck wakes the Monitor immediately instead of waiting out the
// rest of its heartbeat interval. The run loop still enforces
// minHeartbeatInterval between the probe this triggers and whichever probe
// preceded it (spec.md §9 Open Question 1; see DESIGN.md).
func (m *Monitor) RequestCheck() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.wakeRequested = true
	m.cond.Broadcast()
}

// Close stops the probe loop and invalidates its private pool so any
// in-flight probe socket fails fast. Idempotent and safe to call
// concurrently with a running probe.
func (m *Monitor) Close() {
	m.once.Do(func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()

		m.pool.Reset()

		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
}

// Done returns a channel closed once the probe goroutine has exited, for
// Cluster.Close to join on via errgroup.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) run() {
	defer close(m.done)

	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()

		m.rateLimit()

		sd := m.probeWithRetry()
		m.lastProbeAt = time.Now()
		m.prevDesc = sd

		if err := m.handle.onChange(sd); err != nil {
			m.Close()
			return
		}

		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return
		}
		deadline := time.Now().Add(m.heartbeatInterval)
		for !m.stopped && !m.wakeRequested && time.Now().Before(deadline) {
			m.waitUntil(deadline)
		}
		m.wakeRequested = false
		stopped := m.stopped
		m.mu.Unlock()
		if stopped {
			return
		}
	}
}

// waitUntil blocks on m.cond until Broadcast or deadline, whichever comes
// first. Must be called with m.mu held; this is the sole use of Monitor's
// condition variable, as spec.md §5 requires ("used solely to sleep on its
// heartbeat").
func (m *Monitor) waitUntil(deadline time.Time) {
	timer := time.AfterFunc(time.Until(deadline), func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer timer.Stop()
	m.cond.Wait()
}

// rateLimit sleeps off whatever remains of minHeartbeatInterval since the
// last probe, so a burst of RequestCheck calls can't drive probes faster
// than the floor.
func (m *Monitor) rateLimit() {
	if m.lastProbeAt.IsZero() {
		return
	}
	if elapsed := time.Since(m.lastProbeAt); elapsed < minHeartbeatInterval {
		time.Sleep(minHeartbeatInterval - elapsed)
	}
}

// probeWithRetry implements spec.md §4.3's retry rule: one failure is
// tolerated (and triggers a pool reset) before the server is downgraded to
// Unknown, but only if the server was previously known; a server that was
// already Unknown gets no retry.
func (m *Monitor) probeWithRetry() description.ServerDescription {
	prev := m.prevDesc
	retryAllowed := prev.ServerType != description.Unknown

	if sd, ok := m.probeOnce(prev); ok {
		return sd
	}

	if err := m.handle.resetPool(m.address); err != nil {
		m.Close()
	}

	if retryAllowed {
		if sd, ok := m.probeOnce(prev); ok {
			return sd
		}
	}

	return description.NewDefaultServerDescription(m.address)
}

func (m *Monitor) probeOnce(prev description.ServerDescription) (description.ServerDescription, bool) {
	m.log.Print(logger.LevelDebug, logger.ServerHeartbeatStarted{Address: m.address.String()})

	socket, err := m.pool.GetSocket()
	if err != nil {
		m.log.Print(logger.LevelDebug, logger.ServerHeartbeatFailed{Address: m.address.String(), Err: err})
		return description.ServerDescription{}, false
	}

	reply, rtt, err := m.caller(socket)
	if err != nil {
		socket.Close()
		m.log.Print(logger.LevelDebug, logger.ServerHeartbeatFailed{
			Address:  m.address.String(),
			Duration: rtt.String(),
			Err:      err,
		})
		return description.ServerDescription{}, false
	}
	m.pool.MaybeReturnSocket(socket)

	compressor := ""
	if c, ok := wiremessage.Negotiate(reply.Compression, m.compressors); ok {
		compressor = c.Name()
	}

	sd := reply.ToServerDescription(m.address, prev.RoundTripTimes, rtt, compressor)
	m.log.Print(logger.LevelDebug, logger.ServerHeartbeatSucceeded{
		Address:  m.address.String(),
		Duration: rtt.String(),
		Reply:    sd,
	})
	return sd, true
}
