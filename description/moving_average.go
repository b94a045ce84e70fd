// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package description

import "time"

// MovingAverage is a streaming round-trip-time estimator. Instances are
// immutable; CloneWith produces a new value rather than mutating the
// receiver, so a ServerDescription's RTT history survives even though a
// later probe's average does not retroactively change it.
//
// The averaging is a plain arithmetic mean over every sample seen so far,
// matching pymongo's read_preferences.MovingAverage: two samples of 1 and 3
// average to 2 (spec.md §8 scenario 7).
type MovingAverage struct {
	count   int
	total   time.Duration
	average time.Duration
}

// NewMovingAverage seeds a MovingAverage with a single sample.
func NewMovingAverage(sample time.Duration) MovingAverage {
	return MovingAverage{count: 1, total: sample, average: sample}
}

// CloneWith returns a new MovingAverage incorporating sample, leaving the
// receiver untouched.
func (ma MovingAverage) CloneWith(sample time.Duration) MovingAverage {
	total := ma.total + sample
	count := ma.count + 1
	return MovingAverage{
		count:   count,
		total:   total,
		average: total / time.Duration(count),
	}
}

// Average returns the current average duration. The zero value's average is
// zero; callers should check a ServerDescription's RoundTripTimes for nil
// before relying on this.
func (ma MovingAverage) Average() time.Duration {
	return ma.average
}

// Samples reports how many samples have been folded into this average.
func (ma MovingAverage) Samples() int {
	return ma.count
}
