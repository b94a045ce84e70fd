// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

import (
	"go.mongodb.org/sdam/address"
)

// Default bounds used when an ismaster reply omits them, per spec.md §6.
const (
	DefaultMaxBSONSize       = 16 * 1024 * 1024
	DefaultMaxWriteBatchSize = 1000
	DefaultMinWireVersion    = 0
	DefaultMaxWireVersion    = 0
)

// ServerDescription is an immutable snapshot of one server. Every field but
// Address may differ from one snapshot to the next for the same address; a
// ServerDescription is never mutated after construction (spec.md §3).
type ServerDescription struct {
	Address address.Address

	ServerType ServerType

	// AllHosts is the union of hosts, passives, and arbiters the server
	// reports as peers. Empty for non-replica-set servers.
	AllHosts []address.Address

	SetName        string
	PrimaryHint    address.Address
	HasPrimaryHint bool

	Tags map[string]string

	MaxBSONSize       int32
	MaxMessageSize    int32
	MaxWriteBatchSize int32
	MinWireVersion    int32
	MaxWireVersion    int32

	// Compressor is the name of the wire compressor negotiated on the most
	// recent successful probe of this server, or "" if none was negotiated
	// (see wiremessage.Negotiate). Additive beyond spec.md's field list.
	Compressor string

	// RoundTripTimes is nil if this server has never been successfully
	// probed.
	RoundTripTimes *MovingAverage
}

// NewDefaultServerDescription returns the Unknown-typed placeholder used
// for a server that has never replied: a seed, or a newly-discovered peer.
func NewDefaultServerDescription(addr address.Address) ServerDescription {
	return ServerDescription{
		Address:           addr,
		ServerType:        Unknown,
		MaxBSONSize:       DefaultMaxBSONSize,
		MaxMessageSize:    2 * DefaultMaxBSONSize,
		MaxWriteBatchSize: DefaultMaxWriteBatchSize,
		MinWireVersion:    DefaultMinWireVersion,
		MaxWireVersion:    DefaultMaxWireVersion,
	}
}

// IsWritable reports whether this server type currently accepts writes.
func (sd ServerDescription) IsWritable() bool {
	switch sd.ServerType {
	case RSPrimary, Standalone, Mongos:
		return true
	default:
		return false
	}
}

// IsReadable reports whether this server type currently accepts reads.
func (sd ServerDescription) IsReadable() bool {
	return sd.IsWritable() || sd.ServerType == RSSecondary
}

// IsKnown reports whether this server's type has been determined by a
// successful probe (i.e. is not Unknown).
func (sd ServerDescription) IsKnown() bool {
	return sd.ServerType != Unknown
}

// HasHost reports whether addr appears in sd.AllHosts.
func (sd ServerDescription) HasHost(addr address.Address) bool {
	for _, h := range sd.AllHosts {
		if h == addr {
			return true
		}
	}
	return false
}

// String renders "<address> <ServerType>", matching pymongo's
// Server.__repr__ and the teacher's own (*Server) String().
func (sd ServerDescription) String() string {
	return sd.Address.String() + " " + sd.ServerType.String()
}
