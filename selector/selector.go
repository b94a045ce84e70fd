// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package selector provides the server-selection predicates spec.md §4.4
// describes: pure functions from a candidate list of known servers to the
// subset eligible for an operation. Tag-set and read-preference matching
// are explicitly out of scope (spec.md Non-goals); these selectors only
// discriminate on ServerType.
package selector

import "go.mongodb.org/sdam/description"

// Selector narrows a list of known ServerDescriptions to those eligible for
// an operation. Cluster.SelectServers calls it against the cluster's known
// servers on every topology change until it returns a non-empty slice or
// the selection timeout expires (spec.md §4.4).
type Selector func([]description.ServerDescription) []description.ServerDescription

// Any accepts every known server, regardless of type.
func Any(candidates []description.ServerDescription) []description.ServerDescription {
	return candidates
}

// Writable accepts servers that can take writes: a Standalone, a Mongos
// (which routes writes onward), or a replica set primary.
func Writable(candidates []description.ServerDescription) []description.ServerDescription {
	return filter(candidates, description.ServerDescription.IsWritable)
}

// Readable accepts servers that can take reads: anything Writable can,
// plus replica set secondaries.
func Readable(candidates []description.ServerDescription) []description.ServerDescription {
	return filter(candidates, description.ServerDescription.IsReadable)
}

func filter(
	candidates []description.ServerDescription,
	keep func(description.ServerDescription) bool,
) []description.ServerDescription {
	out := make([]description.ServerDescription, 0, len(candidates))
	for _, sd := range candidates {
		if keep(sd) {
			out = append(out, sd)
		}
	}
	return out
}
