// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

// ClusterType is a closed classification of the topology as a whole.
type ClusterType uint8

// The possible ClusterTypes, per spec.md §3.
const (
	Single ClusterType = iota
	ClusterUnknown
	Sharded
	ReplicaSetNoPrimary
	ReplicaSetWithPrimary
)

func (t ClusterType) String() string {
	switch t {
	case Single:
		return "Single"
	case Sharded:
		return "Sharded"
	case ReplicaSetNoPrimary:
		return "ReplicaSetNoPrimary"
	case ReplicaSetWithPrimary:
		return "ReplicaSetWithPrimary"
	default:
		return "Unknown"
	}
}

// clusterTypeForNewlyKnown answers spec.md §4.2's Unknown-cluster dispatch
// table: given the ServerType of the first informative reply seen, what
// ClusterType should the (seed-state) cluster adopt? Only called for types
// that aren't Standalone, Unknown, or RSGhost.
func clusterTypeForNewlyKnown(st ServerType) ClusterType {
	switch st {
	case Mongos:
		return Sharded
	case RSPrimary:
		return ReplicaSetWithPrimary
	case RSSecondary, RSArbiter, RSOther:
		return ReplicaSetNoPrimary
	default:
		return ClusterUnknown
	}
}
