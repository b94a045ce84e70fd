// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package pool specifies the contract this module needs from a TCP
// connection pool and the sockets it hands out. The pool's own
// implementation (dialing, health checks, idle eviction) is an external
// collaborator per spec.md §1; only the interface lives here.
package pool

// Socket is one connection to a server, as handed out by a ConnectionPool.
type Socket interface {
	// SendMessage writes a fully-framed wire message.
	SendMessage(msg []byte) error

	// ReceiveMessage reads the single reply message correlated with
	// responseTo.
	ReceiveMessage(responseTo int32) ([]byte, error)

	// Close releases the underlying connection. Idempotent.
	Close() error
}

// ConnectionPool is the contract spec.md §6 describes: get a socket, return
// it when done, and reset (invalidate) every socket on command.
type ConnectionPool interface {
	// GetSocket returns a ready-to-use Socket, or an error if none could be
	// obtained (e.g. a dial failure).
	GetSocket() (Socket, error)

	// MaybeReturnSocket returns s to the pool if it's still healthy, or
	// closes it otherwise. Implementations must tolerate a nil or
	// already-closed Socket.
	MaybeReturnSocket(s Socket)

	// Reset invalidates every socket currently checked out or idle. A
	// socket borrowed before Reset must fail the next time it is used.
	Reset()
}
