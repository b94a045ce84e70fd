// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

import (
	"fmt"

	"go.mongodb.org/sdam/address"
)

// ClusterDescription is an immutable snapshot of the whole topology: a
// cluster type, a map of every known server's address to its most recent
// ServerDescription, and (for replica sets) the set name.
//
// Invariant: if ClusterType is Single, Servers has exactly one entry and
// the ClusterType never changes for the lifetime of the Cluster that owns
// it (spec.md §3).
type ClusterDescription struct {
	ClusterType ClusterType
	SetName     string
	Servers     map[address.Address]ServerDescription
}

// NewClusterDescription builds an empty-servers ClusterDescription of the
// given type, used as the "no description yet" starting point.
func NewClusterDescription(clusterType ClusterType) ClusterDescription {
	return ClusterDescription{
		ClusterType: clusterType,
		Servers:     map[address.Address]ServerDescription{},
	}
}

// HasServer reports whether addr is present in this snapshot.
func (cd ClusterDescription) HasServer(addr address.Address) bool {
	_, ok := cd.Servers[addr]
	return ok
}

// Server returns the ServerDescription for addr, if present.
func (cd ClusterDescription) Server(addr address.Address) (ServerDescription, bool) {
	sd, ok := cd.Servers[addr]
	return sd, ok
}

// KnownServers returns every server whose type has been determined
// (IsKnown() == true).
func (cd ClusterDescription) KnownServers() []ServerDescription {
	out := make([]ServerDescription, 0, len(cd.Servers))
	for _, sd := range cd.Servers {
		if sd.IsKnown() {
			out = append(out, sd)
		}
	}
	return out
}

// MinWireVersion returns the minimum MinWireVersion across all servers, or
// 0 if there are none.
func (cd ClusterDescription) MinWireVersion() int32 {
	var min int32
	first := true
	for _, sd := range cd.Servers {
		if first || sd.MinWireVersion < min {
			min = sd.MinWireVersion
			first = false
		}
	}
	return min
}

// MaxWireVersion returns the maximum MaxWireVersion across all servers, or
// 0 if there are none.
func (cd ClusterDescription) MaxWireVersion() int32 {
	var max int32
	first := true
	for _, sd := range cd.Servers {
		if first || sd.MaxWireVersion > max {
			max = sd.MaxWireVersion
			first = false
		}
	}
	return max
}

// clone returns a deep-enough copy of cd suitable as the starting point for
// building a new ClusterDescription in the transition function: the Servers
// map is copied so mutating the copy never mutates cd (spec.md §9 "Frozen
// vs. rebuilt descriptions", design (a)).
func (cd ClusterDescription) clone() ClusterDescription {
	servers := make(map[address.Address]ServerDescription, len(cd.Servers))
	for addr, sd := range cd.Servers {
		servers[addr] = sd
	}
	return ClusterDescription{
		ClusterType: cd.ClusterType,
		SetName:     cd.SetName,
		Servers:     servers,
	}
}

// String renders a short human summary of the cluster: its type, set name
// (if any), and every server's own String(), Unknown ones included.
// Grounded on pymongo's ClusterDescription.__repr__.
func (cd ClusterDescription) String() string {
	s := "Cluster[type: " + cd.ClusterType.String()
	if cd.SetName != "" {
		s += ", setName: " + cd.SetName
	}
	s += ", servers: ["
	first := true
	for _, sd := range cd.Servers {
		if !first {
			s += ", "
		}
		first = false
		s += sd.String()
	}
	return s + "]]"
}

// WireVersionRange is the inclusive [Min, Max] wire protocol range a driver
// supports or a server advertises.
type WireVersionRange struct {
	Min int32
	Max int32
}

// CheckCompatible verifies every known server's wire version range overlaps
// supported, failing with a CompatibilityError naming the first offending
// server found (map iteration order is otherwise unspecified, but there is
// at most one incompatible server in the scenarios this spec defines).
func (cd ClusterDescription) CheckCompatible(supported WireVersionRange) error {
	for addr, sd := range cd.Servers {
		if !sd.IsKnown() {
			continue
		}
		tooNew := sd.MinWireVersion > supported.Max
		tooOld := sd.MaxWireVersion < supported.Min
		if tooNew || tooOld {
			return &CompatibilityError{
				Address:      addr,
				ServerMin:    sd.MinWireVersion,
				ServerMax:    sd.MaxWireVersion,
				SupportedMin: supported.Min,
				SupportedMax: supported.Max,
			}
		}
	}
	return nil
}

// CompatibilityError reports that a known server's wire protocol range does
// not overlap this driver's supported range. Its message matches the shape
// required by spec.md §8 scenario 6 and grounded on
// pymongo/cluster_description.py:check_compatible's message.
type CompatibilityError struct {
	Address      address.Address
	ServerMin    int32
	ServerMax    int32
	SupportedMin int32
	SupportedMax int32
}

func (e *CompatibilityError) Error() string {
	return fmt.Sprintf(
		"server at %s uses wire protocol versions %d through %d, "+
			"but this driver only supports %d through %d",
		e.Address, e.ServerMin, e.ServerMax, e.SupportedMin, e.SupportedMax)
}
