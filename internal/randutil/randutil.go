// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package randutil wraps math/rand.Rand with a mutex so a single
// process-wide source can be shared by concurrent callers, grounded on
// go.mongodb.org/mongo-driver/internal/randutil as referenced from
// x/mongo/driver/topology/topology.go.
package randutil

import (
	"math/rand"
	"sync"
)

// LockedRand is a *rand.Rand safe for concurrent use.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand wraps src in a LockedRand.
func NewLockedRand(src rand.Source) *LockedRand {
	return &LockedRand{r: rand.New(src)}
}

// Intn returns a non-negative pseudo-random int in [0, n).
func (lr *LockedRand) Intn(n int) int {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.r.Intn(n)
}
