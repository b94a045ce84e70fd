// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"time"

	"go.mongodb.org/sdam/address"
	"go.mongodb.org/sdam/description"
	"go.mongodb.org/sdam/internal/logger"
	"go.mongodb.org/sdam/pool"
	"go.mongodb.org/sdam/wiremessage"
)

// Defaults, per spec.md §6/§9.
const (
	DefaultHeartbeatInterval      = 10 * time.Second
	DefaultServerSelectionTimeout = 5 * time.Second

	// minHeartbeatInterval rate-limits how soon a RequestCheck-triggered
	// probe may follow the previous one. spec.md §9 leaves this value an
	// open question; this module answers it with the teacher's own
	// x/mongo/driver/topology/server.go constant of the same name and
	// value. See DESIGN.md Open Question 1.
	minHeartbeatInterval = 500 * time.Millisecond
)

// DriverSupportedWireVersions is the wire protocol range this module
// advertises as supported for the Configuration compatibility check
// (spec.md §4.2/§6). A real driver ties this to its supported server
// versions; this module picks a broad, representative range.
var DriverSupportedWireVersions = description.WireVersionRange{Min: 0, Max: 17}

// PoolFactory builds a new ConnectionPool for addr. Settings.PoolFactory is
// called twice per address: once for the Server's application-facing pool,
// once for its Monitor's private probe pool, matching spec.md §4.3 ("it
// owns a dedicated pool exclusively; its pool is never used by application
// traffic").
type PoolFactory func(addr address.Address) pool.ConnectionPool

// Settings configures a Cluster, grounded on pymongo.settings.ClusterSettings
// and the teacher's functional-options ServerOption pattern.
type Settings struct {
	Seeds   []address.Address
	SetName string

	HeartbeatInterval      time.Duration
	ServerSelectionTimeout time.Duration

	// PoolFactory is required: Cluster.Open panics calling a nil function
	// the first time it tries to build a Server if this is left unset.
	PoolFactory PoolFactory

	// IsMasterCaller performs one ismaster round trip over a Socket
	// obtained from a Monitor's probe pool. Defaults to DefaultIsMasterCaller
	// wired to EncodeIsMasterQuery/DecodeReply, but may be replaced outright
	// (as pymongo.monitor.Monitor's call_ismaster_fn parameter allows) to
	// bypass wire I/O entirely, which is how this module's own tests and
	// cmd/sdam-monitor's demo mode work.
	IsMasterCaller IsMasterCaller

	// EncodeIsMasterQuery builds the opaque {ismaster: 1} query message.
	// This is the wire-protocol encoder collaborator spec.md §1 places out
	// of scope; it has no usable default.
	EncodeIsMasterQuery func() []byte

	// DecodeReply parses a raw reply message into a Document. This is the
	// wire-protocol decoder collaborator spec.md §1 places out of scope; it
	// has no usable default.
	DecodeReply func([]byte) (wiremessage.Document, error)

	// Compressors lists, in preference order, the wire compressors this
	// driver offers during negotiation (SPEC_FULL.md §3.3).
	Compressors []string

	AppName string

	Logger *logger.Logger
}

// Option mutates a Settings under construction.
type Option func(*Settings)

// WithSeeds sets the seed list.
func WithSeeds(seeds ...address.Address) Option {
	return func(s *Settings) { s.Seeds = seeds }
}

// WithSetName sets the replica set name, if any.
func WithSetName(name string) Option {
	return func(s *Settings) { s.SetName = name }
}

// WithHeartbeatInterval overrides the default heartbeat interval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Settings) { s.HeartbeatInterval = d }
}

// WithServerSelectionTimeout overrides the default selection timeout.
func WithServerSelectionTimeout(d time.Duration) Option {
	return func(s *Settings) { s.ServerSelectionTimeout = d }
}

// WithPoolFactory overrides how Servers and Monitors obtain pools.
func WithPoolFactory(f PoolFactory) Option {
	return func(s *Settings) { s.PoolFactory = f }
}

// WithIsMasterCaller overrides how a Monitor performs its probe, bypassing
// EncodeIsMasterQuery/DecodeReply entirely.
func WithIsMasterCaller(c IsMasterCaller) Option {
	return func(s *Settings) { s.IsMasterCaller = c }
}

// WithWireCodec supplies the wire-protocol encode/decode collaborator.
func WithWireCodec(encode func() []byte, decode func([]byte) (wiremessage.Document, error)) Option {
	return func(s *Settings) {
		s.EncodeIsMasterQuery = encode
		s.DecodeReply = decode
	}
}

// WithCompressors overrides the offered compressor list.
func WithCompressors(names ...string) Option {
	return func(s *Settings) { s.Compressors = names }
}

// WithAppName records an application name in Settings.AppName. Nothing in
// this module sends it to a server.
func WithAppName(name string) Option {
	return func(s *Settings) { s.AppName = name }
}

// WithLogger overrides the Logger used by the Cluster and its Monitors.
func WithLogger(l *logger.Logger) Option {
	return func(s *Settings) { s.Logger = l }
}

// NewSettings builds a Settings with spec.md-mandated defaults, then
// applies opts in order.
func NewSettings(opts ...Option) Settings {
	s := Settings{
		HeartbeatInterval:      DefaultHeartbeatInterval,
		ServerSelectionTimeout: DefaultServerSelectionTimeout,
		Compressors:            append([]string{}, wiremessage.SupportedCompressors...),
		Logger:                 logger.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.IsMasterCaller == nil {
		s.IsMasterCaller = DefaultIsMasterCaller(s.EncodeIsMasterQuery, s.DecodeReply)
	}
	return s
}

// direct reports whether this configuration connects straight to a single
// server without replica-set discovery (spec.md §6).
func (s Settings) direct() bool {
	return len(s.Seeds) == 1 && s.SetName == ""
}

// initialClusterType derives the seed ClusterType (spec.md §6).
func (s Settings) initialClusterType() description.ClusterType {
	return description.InitialClusterType(s.Seeds, s.SetName)
}
