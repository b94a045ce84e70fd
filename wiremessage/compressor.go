// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Compressor names a negotiated wire compressor and can compress or
// decompress an OP_COMPRESSED payload. Encoding/framing the containing wire
// message remains the encoder/decoder's job; this only transforms bytes.
type Compressor interface {
	Name() string
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// SupportedCompressors lists, in this driver's preference order, the
// compressors it knows how to speak.
var SupportedCompressors = []string{"snappy", "zstd"}

// Negotiate picks the first compressor in preferred order that both this
// driver and the server (per the ismaster reply's "compression" list)
// support. Returns (nil, false) if there is no overlap.
func Negotiate(serverCompressors, preferred []string) (Compressor, bool) {
	offered := make(map[string]bool, len(serverCompressors))
	for _, c := range serverCompressors {
		offered[c] = true
	}

	for _, name := range preferred {
		if !offered[name] {
			continue
		}
		switch name {
		case "snappy":
			return snappyCompressor{}, true
		case "zstd":
			return zstdCompressor{}, true
		}
	}
	return nil, false
}

type snappyCompressor struct{}

func (snappyCompressor) Name() string { return "snappy" }

func (snappyCompressor) Compress(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (snappyCompressor) Decompress(src []byte) ([]byte, error) {
	return snappy.Decode(nil, src)
}

type zstdCompressor struct{}

func (zstdCompressor) Name() string { return "zstd" }

func (zstdCompressor) Compress(src []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(src, nil), nil
}

func (zstdCompressor) Decompress(src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(src, nil)
}
