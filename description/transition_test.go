// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/sdam/address"
)

var (
	addrA = address.MustParse("a:27017")
	addrB = address.MustParse("b:27017")
	addrC = address.MustParse("c:27017")
)

func seeded(clusterType ClusterType, setName string, addrs ...address.Address) ClusterDescription {
	cd := NewClusterDescription(clusterType)
	cd.SetName = setName
	for _, a := range addrs {
		cd.Servers[a] = NewDefaultServerDescription(a)
	}
	return cd
}

func TestInitialClusterType(t *testing.T) {
	assert.Equal(t, Single, InitialClusterType([]address.Address{addrA}, ""))
	assert.Equal(t, ReplicaSetNoPrimary, InitialClusterType([]address.Address{addrA, addrB}, "rs0"))
	assert.Equal(t, ClusterUnknown, InitialClusterType([]address.Address{addrA, addrB}, ""))
}

func TestApply_SeedStandalone(t *testing.T) {
	t.Run("direct connection keeps the single server regardless of type", func(t *testing.T) {
		cd := seeded(Single, "", addrA)
		sd := ServerDescription{Address: addrA, ServerType: Standalone}

		next := Apply(cd, sd)

		assert.Equal(t, Single, next.ClusterType)
		require.True(t, next.HasServer(addrA))
		got, _ := next.Server(addrA)
		assert.Equal(t, Standalone, got.ServerType)
	})

	t.Run("a standalone seen while discovering a set is dropped", func(t *testing.T) {
		cd := seeded(ClusterUnknown, "", addrA, addrB)
		sd := ServerDescription{Address: addrA, ServerType: Standalone}

		next := Apply(cd, sd)

		assert.Equal(t, ClusterUnknown, next.ClusterType)
		assert.False(t, next.HasServer(addrA))
		assert.True(t, next.HasServer(addrB))
	})
}

func TestApply_GhostSeedIsIgnored(t *testing.T) {
	cd := seeded(ClusterUnknown, "", addrA)
	sd := ServerDescription{Address: addrA, ServerType: RSGhost}

	next := Apply(cd, sd)

	assert.Equal(t, ClusterUnknown, next.ClusterType)
	got, ok := next.Server(addrA)
	require.True(t, ok)
	assert.Equal(t, RSGhost, got.ServerType)
}

func TestApply_PrimaryNamesNewHosts(t *testing.T) {
	cd := seeded(ReplicaSetNoPrimary, "rs0", addrA)
	sd := ServerDescription{
		Address:    addrA,
		ServerType: RSPrimary,
		SetName:    "rs0",
		AllHosts:   []address.Address{addrA, addrB, addrC},
	}

	next := Apply(cd, sd)

	assert.Equal(t, ReplicaSetWithPrimary, next.ClusterType)
	assert.True(t, next.HasServer(addrB))
	assert.True(t, next.HasServer(addrC))
	for _, a := range []address.Address{addrB, addrC} {
		got, _ := next.Server(a)
		assert.Equal(t, Unknown, got.ServerType, "newly named host starts Unknown until its own probe")
	}
}

func TestApply_WrongSetNamePrimaryIsDropped(t *testing.T) {
	cd := seeded(ReplicaSetNoPrimary, "rs0", addrA, addrB)
	sd := ServerDescription{
		Address:    addrA,
		ServerType: RSPrimary,
		SetName:    "not-rs0",
		AllHosts:   []address.Address{addrA, addrB},
	}

	next := Apply(cd, sd)

	assert.Equal(t, ReplicaSetNoPrimary, next.ClusterType)
	assert.False(t, next.HasServer(addrA))
	assert.True(t, next.HasServer(addrB))
}

func TestApply_PrimaryBecomesStandalone(t *testing.T) {
	cd := seeded(ReplicaSetWithPrimary, "rs0", addrA, addrB)
	cd.Servers[addrA] = ServerDescription{Address: addrA, ServerType: RSPrimary, SetName: "rs0"}
	cd.Servers[addrB] = ServerDescription{Address: addrB, ServerType: RSSecondary, SetName: "rs0"}

	sd := ServerDescription{Address: addrA, ServerType: Standalone}
	next := Apply(cd, sd)

	assert.Equal(t, ReplicaSetNoPrimary, next.ClusterType)
	assert.False(t, next.HasServer(addrA))
	assert.True(t, next.HasServer(addrB))
}

func TestApply_PrimaryDemotesPriorPrimary(t *testing.T) {
	cd := seeded(ReplicaSetWithPrimary, "rs0", addrA, addrB)
	cd.Servers[addrA] = ServerDescription{Address: addrA, ServerType: RSPrimary, SetName: "rs0", AllHosts: []address.Address{addrA, addrB}}
	cd.Servers[addrB] = ServerDescription{Address: addrB, ServerType: RSSecondary, SetName: "rs0"}

	sd := ServerDescription{
		Address:    addrB,
		ServerType: RSPrimary,
		SetName:    "rs0",
		AllHosts:   []address.Address{addrA, addrB},
	}
	next := Apply(cd, sd)

	assert.Equal(t, ReplicaSetWithPrimary, next.ClusterType)
	old, _ := next.Server(addrA)
	assert.Equal(t, Unknown, old.ServerType, "the stale primary is demoted, not removed")
	newPrimary, _ := next.Server(addrB)
	assert.Equal(t, RSPrimary, newPrimary.ServerType)
}

func TestApply_NonPrimaryNeverRemovesServers(t *testing.T) {
	cd := seeded(ReplicaSetNoPrimary, "rs0", addrA, addrC)
	sd := ServerDescription{
		Address:    addrA,
		ServerType: RSSecondary,
		SetName:    "rs0",
		AllHosts:   []address.Address{addrA, addrB},
	}

	next := Apply(cd, sd)

	assert.Equal(t, ReplicaSetNoPrimary, next.ClusterType)
	assert.True(t, next.HasServer(addrB))
	assert.True(t, next.HasServer(addrC), "a host missing from a secondary's list is kept")
}

func TestApply_LosingThePrimaryDemotesCluster(t *testing.T) {
	cd := seeded(ReplicaSetWithPrimary, "rs0", addrA, addrB)
	cd.Servers[addrA] = ServerDescription{Address: addrA, ServerType: RSPrimary, SetName: "rs0"}
	cd.Servers[addrB] = ServerDescription{Address: addrB, ServerType: RSSecondary, SetName: "rs0"}

	sd := ServerDescription{Address: addrA, ServerType: Unknown}
	next := Apply(cd, sd)

	assert.Equal(t, ReplicaSetNoPrimary, next.ClusterType)
}

func TestApply_DoesNotMutateItsInput(t *testing.T) {
	cd := seeded(ReplicaSetNoPrimary, "rs0", addrA)
	want := seeded(ReplicaSetNoPrimary, "rs0", addrA)

	_ = Apply(cd, ServerDescription{
		Address:    addrA,
		ServerType: RSPrimary,
		SetName:    "rs0",
		AllHosts:   []address.Address{addrA, addrB, addrC},
	})

	if diff := cmp.Diff(want, cd); diff != "" {
		t.Fatalf("Apply mutated its ClusterDescription argument (-want +got):\n%s", diff)
	}
	assert.Equal(t, ReplicaSetNoPrimary, cd.ClusterType)
}

func TestCheckCompatible_IncompatibleWireVersion(t *testing.T) {
	cd := seeded(Single, "", addrA)
	cd.Servers[addrA] = ServerDescription{
		Address:        addrA,
		ServerType:     Standalone,
		MinWireVersion: 20,
		MaxWireVersion: 25,
	}

	err := cd.CheckCompatible(WireVersionRange{Min: 0, Max: 17})
	require.Error(t, err)

	var compatErr *CompatibilityError
	require.True(t, errors.As(err, &compatErr))
	assert.Equal(t, addrA, compatErr.Address)
	assert.Equal(t,
		"server at a:27017 uses wire protocol versions 20 through 25, "+
			"but this driver only supports 0 through 17",
		err.Error())
}

func TestCheckCompatible_IgnoresUnknownServers(t *testing.T) {
	cd := seeded(ClusterUnknown, "", addrA)
	assert.NoError(t, cd.CheckCompatible(WireVersionRange{Min: 0, Max: 17}))
}
