// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

import "go.mongodb.org/sdam/address"

// Apply is the topology transition function: a pure function from the
// current ClusterDescription and a freshly produced ServerDescription (for
// an address already present in cd) to the next ClusterDescription. It
// implements spec.md §4.2 in full.
//
// The precondition that sd.Address is already a key of cd.Servers is the
// caller's responsibility (Cluster.onServerDescription drops updates for
// addresses that raced their own removal); Apply does not check it, and for
// an absent address it installs sd.Address as a new key.
func Apply(cd ClusterDescription, sd ServerDescription) ClusterDescription {
	next := cd.clone()
	next.Servers[sd.Address] = sd

	switch next.ClusterType {
	case Single:
		// Sticky: type never changes, but the replacement above already
		// updated the single server's description.
		return next

	case ClusterUnknown:
		next = applyToUnknownCluster(next, sd)

	case Sharded:
		applyToSharded(&next, sd)

	case ReplicaSetNoPrimary:
		next = applyToReplicaSetNoPrimary(next, sd)

	case ReplicaSetWithPrimary:
		next = applyToReplicaSetWithPrimary(next, sd)
	}

	return next
}

func applyToUnknownCluster(cd ClusterDescription, sd ServerDescription) ClusterDescription {
	switch sd.ServerType {
	case Standalone:
		delete(cd.Servers, sd.Address)
		return cd

	case Unknown, RSGhost:
		return cd

	default:
		cd.ClusterType = clusterTypeForNewlyKnown(sd.ServerType)

		switch cd.ClusterType {
		case ReplicaSetWithPrimary:
			return updateReplicaSetWithPrimaryFromPrimary(cd, sd)
		case ReplicaSetNoPrimary:
			return updateReplicaSetWithoutPrimary(cd, sd)
		default:
			return cd
		}
	}
}

func applyToSharded(cd *ClusterDescription, sd ServerDescription) {
	if sd.ServerType != Mongos {
		delete(cd.Servers, sd.Address)
	}
}

func applyToReplicaSetNoPrimary(cd ClusterDescription, sd ServerDescription) ClusterDescription {
	switch sd.ServerType {
	case Standalone, Mongos:
		delete(cd.Servers, sd.Address)
		return cd

	case RSPrimary:
		cd.ClusterType = ReplicaSetWithPrimary
		return updateReplicaSetWithPrimaryFromPrimary(cd, sd)

	case RSSecondary, RSArbiter, RSOther:
		return updateReplicaSetWithoutPrimary(cd, sd)

	default:
		return cd
	}
}

func applyToReplicaSetWithPrimary(cd ClusterDescription, sd ServerDescription) ClusterDescription {
	switch sd.ServerType {
	case Standalone, Mongos:
		delete(cd.Servers, sd.Address)
		return checkHasPrimary(cd)

	case RSPrimary:
		return updateReplicaSetWithPrimaryFromPrimary(cd, sd)

	case RSSecondary, RSArbiter, RSOther:
		return updateReplicaSetWithPrimaryFromMember(cd, sd)

	default:
		// Unknown or RSGhost: did we just lose the primary?
		return checkHasPrimary(cd)
	}
}

// updateReplicaSetWithPrimaryFromPrimary implements the primary-update
// rules (spec.md §4.2). cd.Servers[sd.Address] has already been set to sd
// by Apply before this runs, per the member-with-primary-update open
// question resolution recorded in DESIGN.md.
func updateReplicaSetWithPrimaryFromPrimary(cd ClusterDescription, sd ServerDescription) ClusterDescription {
	if cd.SetName == "" {
		cd.SetName = sd.SetName
	} else if cd.SetName != sd.SetName {
		delete(cd.Servers, sd.Address)
		cd.ClusterType = ReplicaSetNoPrimary
		return cd
	}

	// At most one prior primary; demote it to a fresh Unknown placeholder,
	// losing its RTT history.
	for addr, other := range cd.Servers {
		if addr != sd.Address && other.ServerType == RSPrimary {
			cd.Servers[addr] = NewDefaultServerDescription(addr)
			break
		}
	}

	for _, addr := range sd.AllHosts {
		if !cd.HasServer(addr) {
			cd.Servers[addr] = NewDefaultServerDescription(addr)
		}
	}

	for addr := range cd.Servers {
		if !sd.HasHost(addr) {
			delete(cd.Servers, addr)
		}
	}

	cd.ClusterType = ReplicaSetWithPrimary
	return cd
}

// updateReplicaSetWithoutPrimary implements the non-primary-update rules:
// only additions, never removals, since a non-primary isn't authoritative
// about membership.
func updateReplicaSetWithoutPrimary(cd ClusterDescription, sd ServerDescription) ClusterDescription {
	if cd.SetName == "" {
		cd.SetName = sd.SetName
	} else if cd.SetName != sd.SetName {
		delete(cd.Servers, sd.Address)
		return cd
	}

	for _, addr := range sd.AllHosts {
		if !cd.HasServer(addr) {
			cd.Servers[addr] = NewDefaultServerDescription(addr)
		}
	}
	return cd
}

// updateReplicaSetWithPrimaryFromMember implements the
// member-with-primary-update rule.
func updateReplicaSetWithPrimaryFromMember(cd ClusterDescription, sd ServerDescription) ClusterDescription {
	if sd.SetName != cd.SetName {
		delete(cd.Servers, sd.Address)
	}
	return checkHasPrimary(cd)
}

// checkHasPrimary demotes the cluster to ReplicaSetNoPrimary unless some
// server in the current map is still typed RSPrimary.
func checkHasPrimary(cd ClusterDescription) ClusterDescription {
	for _, sd := range cd.Servers {
		if sd.ServerType == RSPrimary {
			cd.ClusterType = ReplicaSetWithPrimary
			return cd
		}
	}
	cd.ClusterType = ReplicaSetNoPrimary
	return cd
}

// InitialClusterType derives the seed ClusterType from configuration, per
// spec.md §6: direct connections are Single, a configured set name without
// direct connection is ReplicaSetNoPrimary, otherwise Unknown.
func InitialClusterType(seeds []address.Address, setName string) ClusterType {
	direct := len(seeds) == 1 && setName == ""
	switch {
	case direct:
		return Single
	case setName != "":
		return ReplicaSetNoPrimary
	default:
		return ClusterUnknown
	}
}
