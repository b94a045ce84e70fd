// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"errors"
	"fmt"

	"go.mongodb.org/sdam/description"
)

// ErrClusterClosed is returned by SelectServers (and so SelectOne) when
// called after Close, or when Close runs while it is waiting. The other
// Cluster methods do not report it.
var ErrClusterClosed = errors.New("topology: cluster is closed")

// ErrInvalidState is returned by Open when the Cluster has already been
// opened (spec.md §4.4, §7).
var ErrInvalidState = errors.New("topology: cluster already opened")

// ErrServerClosed is returned by Close on every call after the first
// (spec.md §4.4: "subsequent calls are errors").
var ErrServerClosed = errors.New("topology: cluster already closed")

// ErrNoSuitableServers is wrapped by ServerSelectionError when
// SelectServers gives up without finding a suitable server (spec.md §4.4's
// ConnectionFailure("No suitable servers available")).
var ErrNoSuitableServers = errors.New("topology: no suitable servers available")

// ServerSelectionError reports that SelectServers could not find a
// candidate before its deadline expired. Desc is the cluster
// description in effect at the moment selection gave up, so a caller can
// explain which servers were known and why none qualified.
type ServerSelectionError struct {
	Wrapped error
	Desc    description.ClusterDescription
}

func (e *ServerSelectionError) Error() string {
	return fmt.Sprintf("server selection error: %s; current topology: %s", e.Wrapped, e.Desc.String())
}

func (e *ServerSelectionError) Unwrap() error { return e.Wrapped }
