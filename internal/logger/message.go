// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package logger

// ComponentMessage is one structured log event: which Component it belongs
// to, a short human message, and a flat key/value list of details.
type ComponentMessage interface {
	Component() Component
	Message() string
	Serialize(maxDocumentLength uint) []interface{}
}

// CommandMessageDropped is logged in place of a message that arrived while
// the printer goroutine's job queue was full, so a burst of heartbeats
// never blocks the caller that triggered them.
type CommandMessageDropped struct {
	Dropped ComponentMessage
}

func (CommandMessageDropped) Component() Component { return ComponentTopology }
func (CommandMessageDropped) Message() string       { return "Log message dropped: queue full" }
func (m CommandMessageDropped) Serialize(uint) []interface{} {
	if m.Dropped == nil {
		return nil
	}
	return []interface{}{"droppedComponent", m.Dropped.Component()}
}

// TopologyOpening is logged once, when a Cluster starts monitoring.
type TopologyOpening struct {
	SetName string
}

func (TopologyOpening) Component() Component { return ComponentTopology }
func (TopologyOpening) Message() string       { return "Starting topology monitoring" }
func (m TopologyOpening) Serialize(uint) []interface{} {
	return []interface{}{"setName", m.SetName}
}

// TopologyClosed is logged once, when a Cluster's Close has fully drained
// its Monitors and Servers.
type TopologyClosed struct{}

func (TopologyClosed) Component() Component             { return ComponentTopology }
func (TopologyClosed) Message() string                  { return "Stopped topology monitoring" }
func (TopologyClosed) Serialize(uint) []interface{} { return nil }

// TopologyDescriptionChanged is logged every time Cluster.onServerDescription installs
// a new ClusterDescription, whether or not anything actually differs from
// the previous one.
type TopologyDescriptionChanged struct {
	Previous, New fmtStringer
}

type fmtStringer interface{ String() string }

func (TopologyDescriptionChanged) Component() Component { return ComponentTopology }
func (TopologyDescriptionChanged) Message() string       { return "Topology description changed" }
func (m TopologyDescriptionChanged) Serialize(maxLen uint) []interface{} {
	return []interface{}{
		"previousDescription", truncate(dump(m.Previous), maxLen),
		"newDescription", truncate(dump(m.New), maxLen),
	}
}

// ServerHeartbeatStarted is logged immediately before a Monitor sends an
// ismaster query.
type ServerHeartbeatStarted struct {
	Address string
	Awaited bool
}

func (ServerHeartbeatStarted) Component() Component { return ComponentHeartbeat }
func (ServerHeartbeatStarted) Message() string       { return "Server heartbeat started" }
func (m ServerHeartbeatStarted) Serialize(uint) []interface{} {
	return []interface{}{"serverHost", m.Address, "awaited", m.Awaited}
}

// ServerHeartbeatSucceeded is logged after a Monitor parses a successful
// reply into a ServerDescription.
type ServerHeartbeatSucceeded struct {
	Address  string
	Duration string
	Reply    fmtStringer
}

func (ServerHeartbeatSucceeded) Component() Component { return ComponentHeartbeat }
func (ServerHeartbeatSucceeded) Message() string       { return "Server heartbeat succeeded" }
func (m ServerHeartbeatSucceeded) Serialize(maxLen uint) []interface{} {
	return []interface{}{
		"serverHost", m.Address,
		"durationMS", m.Duration,
		"reply", truncate(dump(m.Reply), maxLen),
	}
}

// ServerHeartbeatFailed is logged when a Monitor probe attempt fails, once
// per attempt inside probeWithRetry (so up to twice per heartbeat).
type ServerHeartbeatFailed struct {
	Address  string
	Duration string
	Err      error
}

func (ServerHeartbeatFailed) Component() Component { return ComponentHeartbeat }
func (ServerHeartbeatFailed) Message() string       { return "Server heartbeat failed" }
func (m ServerHeartbeatFailed) Serialize(uint) []interface{} {
	errStr := ""
	if m.Err != nil {
		errStr = m.Err.Error()
	}
	return []interface{}{"serverHost", m.Address, "durationMS", m.Duration, "failure", errStr}
}

// ServerSelectionStarted is logged once per SelectServers call.
type ServerSelectionStarted struct {
	Operation string
}

func (ServerSelectionStarted) Component() Component { return ComponentServerSelection }
func (ServerSelectionStarted) Message() string       { return "Server selection started" }
func (m ServerSelectionStarted) Serialize(uint) []interface{} {
	return []interface{}{"operation", m.Operation}
}

// ServerSelectionSucceeded is logged once a SelectServers call finds a
// non-empty candidate set.
type ServerSelectionSucceeded struct {
	Operation string
	Address   string
}

func (ServerSelectionSucceeded) Component() Component { return ComponentServerSelection }
func (ServerSelectionSucceeded) Message() string       { return "Server selection succeeded" }
func (m ServerSelectionSucceeded) Serialize(uint) []interface{} {
	return []interface{}{"operation", m.Operation, "serverHost", m.Address}
}

// ServerSelectionFailed is logged when SelectServers gives up after its
// timeout elapses without a suitable server.
type ServerSelectionFailed struct {
	Operation string
	Err       error
}

func (ServerSelectionFailed) Component() Component { return ComponentServerSelection }
func (ServerSelectionFailed) Message() string       { return "Server selection failed" }
func (m ServerSelectionFailed) Serialize(uint) []interface{} {
	errStr := ""
	if m.Err != nil {
		errStr = m.Err.Error()
	}
	return []interface{}{"operation", m.Operation, "failure", errStr}
}
