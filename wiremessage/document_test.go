// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentGetters(t *testing.T) {
	doc := Document{
		"flag":    true,
		"name":    "rs0",
		"asInt32": int32(7),
		"asInt64": int64(8),
		"asInt":   9,
		"asFloat": 10.0,
		"hosts":   []interface{}{"a:1", "b:2"},
		"tags":    map[string]interface{}{"k": "v"},
	}

	assert.True(t, doc.GetBool("flag"))
	assert.False(t, doc.GetBool("missing"))

	assert.Equal(t, "rs0", doc.GetString("name"))
	assert.Equal(t, "", doc.GetString("missing"))

	for _, key := range []string{"asInt32", "asInt64", "asInt", "asFloat"} {
		v, ok := doc.GetInt32(key)
		assert.True(t, ok, key)
		assert.NotZero(t, v, key)
	}
	_, ok := doc.GetInt32("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a:1", "b:2"}, doc.GetStringSlice("hosts"))
	assert.Nil(t, doc.GetStringSlice("missing"))

	assert.Equal(t, map[string]string{"k": "v"}, doc.GetStringMap("tags"))
	assert.Nil(t, doc.GetStringMap("missing"))

	assert.True(t, doc.Has("flag"))
	assert.False(t, doc.Has("nope"))
}
