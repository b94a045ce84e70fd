// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"math/rand"
	"time"

	"go.mongodb.org/sdam/description"
	"go.mongodb.org/sdam/internal/randutil"
	"go.mongodb.org/sdam/selector"
)

var selectionRand = randutil.NewLockedRand(rand.NewSource(time.Now().UnixNano()))

// SelectOne is SelectServers narrowed to a single, randomly-chosen
// candidate, the way an operation that only needs one connection would use
// it. Picking uniformly among equally-eligible candidates spreads load
// across them instead of always favoring whichever sorts first out of the
// servers map.
func (c *Cluster) SelectOne(sel selector.Selector, timeout time.Duration) (description.ServerDescription, error) {
	candidates, err := c.SelectServers(sel, timeout)
	if err != nil {
		return description.ServerDescription{}, err
	}
	return candidates[selectionRand.Intn(len(candidates))], nil
}
