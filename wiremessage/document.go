// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package wiremessage defines the narrow boundary this module shares with
// the wire-protocol encoder/decoder: a decoded reply document, and the
// compressor negotiation performed once that document has been parsed.
// Encoding and decoding themselves are out of scope (see spec.md §1).
package wiremessage

// Document is a decoded BSON-like document, keyed by field name. This
// module never constructs one from raw bytes; it is handed one by the
// encoding collaborator and only reads from it.
type Document map[string]interface{}

// GetBool returns doc[key] as a bool, or false if absent or not a bool.
func (doc Document) GetBool(key string) bool {
	v, ok := doc[key].(bool)
	return ok && v
}

// GetString returns doc[key] as a string, or "" if absent or not a string.
func (doc Document) GetString(key string) string {
	v, _ := doc[key].(string)
	return v
}

// GetInt32 returns doc[key] as an int32 and whether it was present as a
// numeric type. Accepts int, int32, int64, and float64 (the shapes a
// generic decoded-document representation is likely to produce).
func (doc Document) GetInt32(key string) (int32, bool) {
	switch v := doc[key].(type) {
	case int32:
		return v, true
	case int64:
		return int32(v), true
	case int:
		return int32(v), true
	case float64:
		return int32(v), true
	default:
		return 0, false
	}
}

// GetStringSlice returns doc[key] as a []string, or nil if absent.
func (doc Document) GetStringSlice(key string) []string {
	raw, ok := doc[key].([]interface{})
	if !ok {
		if ss, ok := doc[key].([]string); ok {
			return ss
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// GetStringMap returns doc[key] as a map[string]string, or nil if absent.
func (doc Document) GetStringMap(key string) map[string]string {
	raw, ok := doc[key].(map[string]interface{})
	if !ok {
		if sm, ok := doc[key].(map[string]string); ok {
			return sm
		}
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// Has reports whether key is present in doc at all (regardless of value).
func (doc Document) Has(key string) bool {
	_, ok := doc[key]
	return ok
}
