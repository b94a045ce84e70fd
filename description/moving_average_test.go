// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMovingAverage(t *testing.T) {
	t.Run("single sample", func(t *testing.T) {
		ma := NewMovingAverage(10 * time.Millisecond)
		assert.Equal(t, 10*time.Millisecond, ma.Average())
		assert.Equal(t, 1, ma.Samples())
	})

	t.Run("plain arithmetic mean, not exponential", func(t *testing.T) {
		// spec.md §8 scenario 7: averaging 1ms then 3ms must land on 2ms,
		// which only a plain mean (not an EWMA) produces.
		ma := NewMovingAverage(1 * time.Millisecond)
		ma = ma.CloneWith(3 * time.Millisecond)
		assert.Equal(t, 2*time.Millisecond, ma.Average())
		assert.Equal(t, 2, ma.Samples())
	})

	t.Run("CloneWith does not mutate the receiver", func(t *testing.T) {
		ma := NewMovingAverage(1 * time.Millisecond)
		next := ma.CloneWith(3 * time.Millisecond)
		assert.Equal(t, 1*time.Millisecond, ma.Average())
		assert.Equal(t, 2*time.Millisecond, next.Average())
	})

	t.Run("three samples", func(t *testing.T) {
		ma := NewMovingAverage(1 * time.Millisecond)
		ma = ma.CloneWith(2 * time.Millisecond)
		ma = ma.CloneWith(3 * time.Millisecond)
		assert.Equal(t, 2*time.Millisecond, ma.Average())
		assert.Equal(t, 3, ma.Samples())
	})
}
