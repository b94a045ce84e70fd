// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package ismaster parses a decoded "ismaster" command reply into a
// description.ServerType and the member hints spec.md §4.1 requires.
package ismaster

import (
	"time"

	"go.mongodb.org/sdam/address"
	"go.mongodb.org/sdam/description"
	"go.mongodb.org/sdam/wiremessage"
)

// Reply is the parsed form of an ismaster/hello response document.
type Reply struct {
	OK             bool
	ServerType     description.ServerType
	AllHosts       []address.Address
	SetName        string
	Primary        address.Address
	HasPrimary     bool
	Tags           map[string]string
	MaxBSONSize    int32
	MaxMessageSize int32
	MaxWriteBatch  int32
	MinWireVersion int32
	MaxWireVersion int32
	Compression    []string
}

// classify implements spec.md §4.1's classification rules, applied
// top-to-bottom, mirroring pymongo.ismaster.get_server_type.
func classify(doc wiremessage.Document) description.ServerType {
	if !isOK(doc) {
		return description.Unknown
	}

	if doc.GetBool("isreplicaset") {
		return description.RSGhost
	}

	if setName := doc.GetString("setName"); setName != "" {
		switch {
		case doc.GetBool("hidden"):
			return description.RSOther
		case doc.GetBool("ismaster"):
			return description.RSPrimary
		case doc.GetBool("secondary"):
			return description.RSSecondary
		case doc.GetBool("arbiterOnly"):
			return description.RSArbiter
		default:
			return description.RSOther
		}
	}

	if doc.GetString("msg") == "isdbgrid" {
		return description.Mongos
	}

	return description.Standalone
}

// isOK reports whether doc's "ok" field is truthy: any non-zero number, or
// bool true, matching MongoDB's long-standing convention of sending "ok" as a
// double.
func isOK(doc wiremessage.Document) bool {
	if n, present := doc.GetInt32("ok"); present {
		return n != 0
	}
	return doc.GetBool("ok")
}

// Parse classifies doc and extracts the fields spec.md §6 lists as
// consumed, applying the defaults spec.md §3/§6 specify.
func Parse(doc wiremessage.Document) (Reply, error) {
	r := Reply{
		OK:             isOK(doc),
		MaxBSONSize:    description.DefaultMaxBSONSize,
		MaxMessageSize: 2 * description.DefaultMaxBSONSize,
		MaxWriteBatch:  description.DefaultMaxWriteBatchSize,
		MinWireVersion: description.DefaultMinWireVersion,
		MaxWireVersion: description.DefaultMaxWireVersion,
	}

	if !r.OK {
		r.ServerType = description.Unknown
		return r, nil
	}

	r.ServerType = classify(doc)

	hostStrings := append([]string{}, doc.GetStringSlice("hosts")...)
	hostStrings = append(hostStrings, doc.GetStringSlice("passives")...)
	hostStrings = append(hostStrings, doc.GetStringSlice("arbiters")...)
	hosts, err := address.ParseHosts(hostStrings)
	if err != nil {
		return Reply{}, err
	}
	r.AllHosts = hosts

	r.SetName = doc.GetString("setName")
	r.Tags = doc.GetStringMap("tags")
	r.Compression = doc.GetStringSlice("compression")

	if primary := doc.GetString("primary"); primary != "" {
		addr, err := address.Parse(primary)
		if err != nil {
			return Reply{}, err
		}
		r.Primary = addr
		r.HasPrimary = true
	}

	if v, ok := doc.GetInt32("maxBsonObjectSize"); ok {
		r.MaxBSONSize = v
	}
	r.MaxMessageSize = 2 * r.MaxBSONSize
	if v, ok := doc.GetInt32("maxMessageSizeBytes"); ok {
		r.MaxMessageSize = v
	}
	if v, ok := doc.GetInt32("maxWriteBatchSize"); ok {
		r.MaxWriteBatch = v
	}
	if v, ok := doc.GetInt32("minWireVersion"); ok {
		r.MinWireVersion = v
	}
	if v, ok := doc.GetInt32("maxWireVersion"); ok {
		r.MaxWireVersion = v
	}

	return r, nil
}

// ToServerDescription builds the ServerDescription for addr from a parsed
// reply and the server's previous round-trip history (nil if this is the
// server's first successful probe). rtt is the duration of the probe that
// produced this reply. compressor, if non-empty, is the wire compressor
// negotiated against this reply's Compression list.
func (r Reply) ToServerDescription(
	addr address.Address,
	prevRTT *description.MovingAverage,
	rtt time.Duration,
	compressor string,
) description.ServerDescription {
	sd := description.ServerDescription{
		Address:           addr,
		ServerType:        r.ServerType,
		AllHosts:          r.AllHosts,
		SetName:           r.SetName,
		PrimaryHint:       r.Primary,
		HasPrimaryHint:    r.HasPrimary,
		Tags:              r.Tags,
		MaxBSONSize:       r.MaxBSONSize,
		MaxMessageSize:    r.MaxMessageSize,
		MaxWriteBatchSize: r.MaxWriteBatch,
		MinWireVersion:    r.MinWireVersion,
		MaxWireVersion:    r.MaxWireVersion,
		Compressor:        compressor,
	}

	if !r.OK {
		sd.ServerType = description.Unknown
		return sd
	}

	var avg description.MovingAverage
	if prevRTT != nil {
		avg = prevRTT.CloneWith(rtt)
	} else {
		avg = description.NewMovingAverage(rtt)
	}
	sd.RoundTripTimes = &avg

	return sd
}
