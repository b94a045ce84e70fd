// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"sync"

	"go.mongodb.org/sdam/address"
	"go.mongodb.org/sdam/description"
	"go.mongodb.org/sdam/pool"
)

// Server pairs one address's application-facing ConnectionPool with the
// Monitor probing it, and caches the most recent ServerDescription the
// Monitor produced (spec.md §3 Cluster runtime state: "for each known
// address, a Server").
type Server struct {
	addr    address.Address
	pool    pool.ConnectionPool
	monitor *Monitor

	mu   sync.Mutex
	desc description.ServerDescription
}

func newServer(addr address.Address, p pool.ConnectionPool, m *Monitor) *Server {
	return &Server{
		addr:    addr,
		pool:    p,
		monitor: m,
		desc:    description.NewDefaultServerDescription(addr),
	}
}

// Address returns this Server's address.
func (s *Server) Address() address.Address { return s.addr }

// Description returns the most recently installed ServerDescription.
func (s *Server) Description() description.ServerDescription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

func (s *Server) setDescription(sd description.ServerDescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desc = sd
}

// ResetPool invalidates this Server's application-facing pool, used after
// a probe failure per spec.md §4.3 ("On failure... invalidate the pool").
func (s *Server) ResetPool() {
	s.pool.Reset()
}

// RequestCheck asks this Server's Monitor to probe sooner than its next
// scheduled heartbeat.
func (s *Server) RequestCheck() {
	s.monitor.RequestCheck()
}

// close stops the Monitor and resets the application pool. Returns the
// Monitor's done channel so the caller can wait for the probe goroutine to
// actually exit.
func (s *Server) close() <-chan struct{} {
	s.monitor.Close()
	s.pool.Reset()
	return s.monitor.Done()
}

// String renders "<address> <ServerType>", matching ServerDescription's own
// rendering (SPEC_FULL.md §4 supplemented feature: server __repr__).
func (s *Server) String() string {
	return s.Description().String()
}
